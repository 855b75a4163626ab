package buf

import (
	"bytes"
	"io"

	"github.com/DataDog/zstd"
	"github.com/therootcompany/xz"
)

// CompressZstd replaces the buffer's contents with their zstd
// compression. Used by the storage engine to compress every stored
// value when a Store has compression enabled; unrelated to HTTP,
// whose bodies are never compressed.
func (b *Buffer) CompressZstd() error {
	out, err := zstd.Compress(nil, b.b)
	if err != nil {
		return err
	}
	b.Free()
	b.Append(out)
	return nil
}

// DecompressZstd replaces the buffer's contents with the zstd
// decompression of its current contents.
func (b *Buffer) DecompressZstd() error {
	out, err := zstd.Decompress(nil, b.b)
	if err != nil {
		return err
	}
	b.Free()
	b.Append(out)
	return nil
}

// DecompressXZ replaces the buffer's contents with the xz
// decompression of its current contents. Decompression only: the xz
// codec here reads archives produced elsewhere, it does not write
// them — rows that want compression on the write path use zstd.
func (b *Buffer) DecompressXZ() error {
	r, err := xz.NewReader(bytes.NewReader(b.b), xz.DefaultDictMax)
	if err != nil {
		return err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.Free()
	b.Append(out)
	return nil
}
