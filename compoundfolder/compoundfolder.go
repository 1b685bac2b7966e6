// Package compoundfolder demonstrates that a faster, bucketed
// directory can be built purely on top of knoxfs.Folder's public
// contract, without touching on-disk semantics: it hashes each name
// to one of K ordinary sub-folders, trading one extra hop for an
// O(n/K) linear scan instead of O(n).
package compoundfolder

import (
	"hash/fnv"

	"github.com/knoxvfs/knoxvfs/knoxfs"
	"github.com/knoxvfs/knoxvfs/vfserrors"
)

// bucketPrefix names the hidden sub-folders a CompoundFolder keeps
// inside its backing folder; they are not meant to be listed by
// ordinary Iterate callers.
const bucketPrefix = ".bucket-"

// CompoundFolder buckets a single knoxfs.Folder's entries across K
// child folders, keyed by fnv-1a(name) % K.
type CompoundFolder struct {
	ctx     *knoxfs.Context
	root    *knoxfs.Folder
	buckets []*knoxfs.Folder
	k       int
}

func bucketName(i int) string {
	return bucketPrefix + string(rune('0'+i))
}

// Create formats root (assumed freshly created and empty) with k
// bucket sub-folders and returns the CompoundFolder wrapping it.
func Create(ctx *knoxfs.Context, root *knoxfs.Folder, k int) (*CompoundFolder, error) {
	if k <= 0 || k > 9 {
		return nil, vfserrors.New(vfserrors.IllegalFilename, "compoundfolder.Create", nil)
	}
	cf := &CompoundFolder{ctx: ctx, root: root, k: k, buckets: make([]*knoxfs.Folder, k)}
	for i := 0; i < k; i++ {
		entry, err := root.Add(bucketName(i), false)
		if err != nil {
			return nil, err
		}
		bucket, err := knoxfs.OpenFolder(ctx, entry.FirstBlock, knoxfs.ReadWrite())
		if err != nil {
			return nil, err
		}
		cf.buckets[i] = bucket
	}
	return cf, nil
}

// Open reopens a CompoundFolder previously formatted by Create.
func Open(ctx *knoxfs.Context, root *knoxfs.Folder, k int) (*CompoundFolder, error) {
	cf := &CompoundFolder{ctx: ctx, root: root, k: k, buckets: make([]*knoxfs.Folder, k)}
	for i := 0; i < k; i++ {
		entry, err := root.Lookup(bucketName(i))
		if err != nil {
			return nil, err
		}
		bucket, err := knoxfs.OpenFolder(ctx, entry.FirstBlock, knoxfs.ReadWrite())
		if err != nil {
			return nil, err
		}
		cf.buckets[i] = bucket
	}
	return cf, nil
}

func (cf *CompoundFolder) bucketFor(name string) *knoxfs.Folder {
	h := fnv.New32a()
	h.Write([]byte(name))
	return cf.buckets[int(h.Sum32())%cf.k]
}

// Add creates name in whichever bucket it hashes to.
func (cf *CompoundFolder) Add(name string, isFile bool) (knoxfs.EntryInfo, error) {
	return cf.bucketFor(name).Add(name, isFile)
}

// Lookup finds name in its bucket.
func (cf *CompoundFolder) Lookup(name string) (knoxfs.EntryInfo, error) {
	return cf.bucketFor(name).Lookup(name)
}

// Remove deletes name from its bucket.
func (cf *CompoundFolder) Remove(name string, recursive bool) error {
	return cf.bucketFor(name).Remove(name, recursive)
}

// Iterate returns every alive entry across all buckets, in bucket
// order; callers that need a total ordering must sort themselves.
func (cf *CompoundFolder) Iterate() ([]knoxfs.EntryInfo, error) {
	var out []knoxfs.EntryInfo
	for _, b := range cf.buckets {
		entries, err := b.Iterate()
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}
