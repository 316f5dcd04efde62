// Package zip bundles generated media files into a single downloadable
// archive.
package zip

import (
	"archive/zip"
	"bytes"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets packs the assets into an in-memory zip. Assets without data
// are skipped rather than written as empty entries.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		if len(asset.Data) == 0 {
			continue
		}
		w, err := zw.Create(asset.Filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
