// Package gallery holds the photos currently loaded by the client.
//
// State keeps exactly one record per photo id. The grid is an ordered list of
// ids over that store, and scoped views (a year or a folder) keep their own
// id order over the same records, so a rotation merged once is seen by every
// view. Year, month and folder groupings are derived on each call and never
// stored.
//
// All mutations go through a small set of methods. Merges never lower a
// photo's rotation version and never reorder any view.
package gallery
