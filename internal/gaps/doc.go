// Package gaps measures how far the corpus is from its configured targets and
// ranks what the next run should generate.
//
// Both analyzers are read-only: they query grouped counts from the store on
// every call and never cache or persist a recommendation. A nil recommendation
// means there is nothing to do, which callers report as a skipped run rather
// than an error.
package gaps
