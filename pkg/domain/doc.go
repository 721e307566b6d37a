// Package domain holds the plain types shared by the matrix builder and the
// state-machine runtime: output directives, event records, name/index maps,
// and the error taxonomy.
//
// Nothing in this package performs I/O or holds behavior beyond basic
// bookkeeping; it exists so that pkg/matrix and pkg/machine can agree on
// vocabulary without depending on each other.
package domain
