// Package regress compares two benchmark entries and decides which benches
// regressed.
//
// A Change's Ratio is normalised so that a value above 1 always means worse:
// curr/prev for smaller-is-better tools and prev/curr for bigger-is-better
// tools. A threshold of "200%" therefore fires when a latency doubles or a
// throughput halves.
package regress
