// Package parser turns ImpEx files into a parsed document plus a short
// outline used for listings, search and reports.
package parser
