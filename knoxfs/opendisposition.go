package knoxfs

// OpenDisposition records which operations a File handle was opened
// for, as an explicit value rather than an *os.File-style flag
// bitmask. Read/Write/Append choose the access mode; Truncate and
// CreateIfMissing are the two independent open-time axes layered on
// top of it.
type OpenDisposition struct {
	Read   bool
	Write  bool
	Append bool

	// Truncate discards the chain's existing content at open time,
	// keeping only a single empty terminal block.
	Truncate bool

	// CreateIfMissing makes Image.OpenFile create an empty file at
	// path instead of failing NotFound when nothing exists there yet.
	CreateIfMissing bool
}

// ReadOnly opens a File for reading only.
func ReadOnly() OpenDisposition { return OpenDisposition{Read: true} }

// WriteOnly opens a File for writing only, in overwrite mode; existing
// content is kept.
func WriteOnly() OpenDisposition { return OpenDisposition{Write: true} }

// ReadWrite opens a File for both reading and writing.
func ReadWrite() OpenDisposition { return OpenDisposition{Read: true, Write: true} }

// AppendOnly opens a File for writing where every Write lands at the
// current end of the chain regardless of the Seek cursor, matching
// O_APPEND semantics.
func AppendOnly() OpenDisposition { return OpenDisposition{Write: true, Append: true} }

// WithTruncate returns d with Truncate set, discarding existing
// content as of open time.
func (d OpenDisposition) WithTruncate() OpenDisposition {
	d.Truncate = true
	return d
}

// WithCreateIfMissing returns d with CreateIfMissing set.
func (d OpenDisposition) WithCreateIfMissing() OpenDisposition {
	d.CreateIfMissing = true
	return d
}
