// Package list implements an adaptive indexed sequence backed by a Go slice.
//
// A FAST write clones the whole slice, so its cost grows linearly with the
// length of the list. Bulk operations (AddAll, InsertAll, RemoveIf) clone
// once per call, not once per element. In SLOW mode all operations edit the
// shared slice in place under the full lock.
//
// Elements keep their insertion order and equality is the == of the element
// type. The zero value is a valid element. Index errors carry the
// IndexOutOfRange code.
package list
