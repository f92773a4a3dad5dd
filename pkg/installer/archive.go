package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// archiveKind classifies a download by filename suffix.
type archiveKind int

const (
	kindRaw archiveKind = iota
	kindTar
	kindTarGz
	kindTarXz
	kindTarBz2
	kindZip
)

// rejectedSuffixes are compression formats we recognize but do not
// extract. Anything else without a known archive suffix is treated as a
// raw binary.
var rejectedSuffixes = []string{".7z", ".rar", ".zst", ".gz", ".xz", ".bz2", ".lz"}

func classifyArchive(name string) (archiveKind, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return kindTarGz, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return kindTarXz, nil
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return kindTarBz2, nil
	case strings.HasSuffix(lower, ".tar"):
		return kindTar, nil
	case strings.HasSuffix(lower, ".zip"):
		return kindZip, nil
	}
	for _, suffix := range rejectedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedArchive, name)
		}
	}
	return kindRaw, nil
}

// extractArchive unpacks src into dest and returns the relative paths of
// the extracted regular files, sorted.
func extractArchive(src string, kind archiveKind, dest string) ([]string, error) {
	var files []string
	var err error

	switch kind {
	case kindZip:
		files, err = extractZip(src, dest)
	default:
		files, err = extractTarFile(src, kind, dest)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, filepath.Base(src), err)
	}

	sort.Strings(files)
	return files, nil
}

func extractTarFile(src string, kind archiveKind, dest string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	switch kind {
	case kindTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case kindTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, err
		}
		r = xr
	case kindTarBz2:
		r = bzip2.NewReader(f)
	}

	return extractTar(r, dest)
}

func extractTar(r io.Reader, dest string) ([]string, error) {
	var files []string

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return nil, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := writeFile(dest, target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return nil, err
			}
			files = append(files, filepath.ToSlash(hdr.Name))
		case tar.TypeSymlink:
			if err := checkLinkTarget(dest, target, hdr.Linkname); err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil && !os.IsExist(err) {
				return nil, err
			}
		}
	}

	return files, nil
}

func extractZip(src, dest string) ([]string, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var files []string
	for _, f := range zr.File {
		target, err := securePath(dest, f.Name)
		if err != nil {
			return nil, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = writeFile(dest, target, rc, f.Mode().Perm())
		rc.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(f.Name))
	}

	return files, nil
}

// securePath joins an archive entry name onto dest, rejecting entries
// that would escape it.
func securePath(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return filepath.Join(dest, clean), nil
}

// checkLinkTarget rejects symlink entries whose target resolves outside
// dest. Every symlink in the staging tree therefore points back into it,
// which keeps later entries from being routed outside through one.
func checkLinkTarget(dest, link, linkname string) error {
	target := filepath.FromSlash(linkname)
	if filepath.IsAbs(target) {
		return fmt.Errorf("archive symlink escapes destination: %s -> %s", link, linkname)
	}
	resolved := filepath.Clean(filepath.Join(filepath.Dir(link), target))
	if resolved != dest && !strings.HasPrefix(resolved, dest+string(filepath.Separator)) {
		return fmt.Errorf("archive symlink escapes destination: %s -> %s", link, linkname)
	}
	return nil
}

// realParentInside verifies that dir, with any symlinks resolved, still
// lies inside dest.
func realParentInside(dest, dir string) error {
	realDest, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if realDir != realDest && !strings.HasPrefix(realDir, realDest+string(filepath.Separator)) {
		return fmt.Errorf("archive entry escapes destination: %s", dir)
	}
	return nil
}

func writeFile(dest, target string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := realParentInside(dest, dir); err != nil {
		return err
	}
	// Never write through a symlink left by an earlier entry.
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return err
		}
	}
	if perm == 0 {
		perm = 0644
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return nil
}
