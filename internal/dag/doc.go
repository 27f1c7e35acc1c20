// Package dag provides the small dependency graph used to order the
// resolution of declared options. Nodes are plain string IDs; edges point
// from a dependency to its dependent.
//
// Unlike a general-purpose graph library, every traversal here is
// deterministic: ties are always broken by the order in which nodes were
// added, which is the declaration order of the surrounding table.
package dag
