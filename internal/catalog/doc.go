// Package catalog is the read-mostly product and category store behind the
// public browsing surface.
package catalog
