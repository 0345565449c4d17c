// Package wiki extends goldmark with wiki-style features: inline
// [[display|target]] links, "%" safe markers that gate which top-level
// blocks are emitted, and an advisory pass that checks link targets against
// the files of a directory.
package wiki
