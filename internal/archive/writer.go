package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/Lectern/core/errors"
)

// packEpoch is the fixed timestamp written into bundle headers so that
// packing the same rendered directory twice yields identical bytes.
var packEpoch = time.Unix(0, 0).UTC()

// Pack writes srcDir into a compressed tar bundle at dstPath. The
// compression is chosen from the destination suffix (.tar.xz or
// .tar.gz); the directory name inside the bundle is derived from
// dstPath with the extensions stripped.
func Pack(srcDir, dstPath string) error {
	baseDir := BundleID(filepath.Base(dstPath))

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return errors.NewIO("create", filepath.Dir(dstPath), err)
	}
	outFile, err := os.Create(dstPath)
	if err != nil {
		return errors.NewIO("create", dstPath, err)
	}
	defer outFile.Close()

	var compressor io.WriteCloser
	switch {
	case strings.HasSuffix(dstPath, ".tar.xz"):
		compressor, err = xz.NewWriter(outFile)
		if err != nil {
			return errors.Wrap(err, "failed to open xz writer")
		}
	case strings.HasSuffix(dstPath, ".tar.gz"):
		compressor = gzip.NewWriter(outFile)
	default:
		return errors.NewUnsupported("bundle format", dstPath)
	}
	defer compressor.Close()

	tw := tar.NewWriter(compressor)
	defer tw.Close()

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = baseDir + "/" + filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		}

		// Normalize ownership and timestamps for reproducibility.
		header.ModTime = packEpoch
		header.Uid = 0
		header.Gid = 0
		header.Uname = ""
		header.Gname = ""

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if !info.IsDir() {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			if _, err := io.Copy(tw, file); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to pack bundle")
	}

	// Flush tar and compressor before the file closes.
	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "failed to finish tar stream")
	}
	if err := compressor.Close(); err != nil {
		return errors.Wrap(err, "failed to finish compression")
	}
	return nil
}
