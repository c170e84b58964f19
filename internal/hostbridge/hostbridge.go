// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package hostbridge reads a host directory tree into a *machfs.Folder and
// writes one back out, the mechanical glue around the core codec: the
// .idump/.rdump sidecar convention, the ':'<->host-separator name swap,
// TEXT-fork line-ending transcoding, and an opt-in MPW timestamp hack.
// None of this is used by package machfs itself.
package hostbridge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding/charmap"

	"github.com/elliotnunn/machfs"
	"github.com/elliotnunn/machfs/internal/appledouble"
)

var textType = [4]byte{'T', 'E', 'X', 'T'}

// ReadOptions configures ReadDir.
type ReadOptions struct {
	// Exclude is a doublestar glob matched against each entry's base name;
	// matches are skipped entirely, folders included.
	Exclude string

	// Date seeds every folder's and file's timestamps; the zero value
	// means now.
	Date time.Time

	// MPWDates replaces every file's timestamps with Date+60*rank, rank
	// being the file's host mtime's position among the tree's distinct
	// mtimes sorted ascending -- an MPW build-system hack for synthesising
	// monotonically increasing, second-granular creation times. Folders
	// keep Date. Opt-in, and confined to this package: the core never
	// applies it.
	MPWDates bool

	// AppleDouble recognises "._name" sidecars (as written by modern macOS,
	// or by WriteOptions.AppleDouble) alongside, or instead of, the
	// .idump/.rdump convention.
	AppleDouble bool
}

// ReadDir walks a host directory and returns it as a *machfs.Folder tree.
func ReadDir(root string, opts ReadOptions) (*machfs.Folder, error) {
	base := opts.Date
	if base.IsZero() {
		base = time.Now().UTC()
	}
	top := &machfs.Folder{CrDate: base, MdDate: base, BkDate: base}

	realTimes := make(map[*machfs.File]time.Time)
	if err := readDirInto(top, root, opts, base, realTimes); err != nil {
		return nil, err
	}

	transcodeTextForks(top, hostTextToMacRoman)

	if opts.MPWDates {
		applyMPWDates(top, base, realTimes)
	}
	return top, nil
}

func readDirInto(dir *machfs.Folder, hostPath string, opts ReadOptions, base time.Time, realTimes map[*machfs.File]time.Time) error {
	entries, err := os.ReadDir(hostPath)
	if err != nil {
		return fmt.Errorf("hostbridge: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	files := make(map[string]*machfs.File)
	var fileOrder []string

	adSidecars := make(map[string][]byte) // HFS name -> raw "._name" contents

	for _, entry := range entries {
		name := entry.Name()
		if opts.AppleDouble {
			if base, ok := strings.CutPrefix(name, "._"); ok && !entry.IsDir() {
				raw, rerr := os.ReadFile(filepath.Join(hostPath, name))
				if rerr != nil {
					return fmt.Errorf("hostbridge: %w", rerr)
				}
				adSidecars[swapSeparatorIn(base)] = raw
				continue
			}
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if opts.Exclude != "" {
			if match, merr := doublestar.Match(opts.Exclude, name); merr == nil && match {
				slog.Debug("hostbridge: excluded", "path", filepath.Join(hostPath, name))
				continue
			}
		}
		childHostPath := filepath.Join(hostPath, name)

		if entry.IsDir() {
			sub := &machfs.Folder{CrDate: base, MdDate: base, BkDate: base}
			if err := readDirInto(sub, childHostPath, opts, base, realTimes); err != nil {
				return err
			}
			dir.Place(swapSeparatorIn(name), sub)
			continue
		}

		baseName, suffix := splitSidecar(name)
		hfsName := swapSeparatorIn(baseName)

		f := files[hfsName]
		if f == nil {
			f = &machfs.File{CrDate: base, MdDate: base, BkDate: base}
			files[hfsName] = f
			fileOrder = append(fileOrder, hfsName)
		}

		info, ierr := entry.Info()
		if ierr != nil {
			return fmt.Errorf("hostbridge: %w", ierr)
		}
		realTimes[f] = info.ModTime()

		raw, rerr := os.ReadFile(childHostPath)
		if rerr != nil {
			return fmt.Errorf("hostbridge: %w", rerr)
		}

		switch suffix {
		case ".idump":
			if len(raw) < 8 {
				return fmt.Errorf("hostbridge: %s: idump shorter than 8 bytes", childHostPath)
			}
			copy(f.Type[:], raw[0:4])
			copy(f.Creator[:], raw[4:8])
		case ".rdump":
			f.Rsrc = raw
		default:
			f.Data = raw
		}
	}

	for hfsName, raw := range adSidecars {
		f := files[hfsName]
		if f == nil {
			f = &machfs.File{CrDate: base, MdDate: base, BkDate: base}
			files[hfsName] = f
			fileOrder = append(fileOrder, hfsName)
		}
		ad, rsrc, perr := appledouble.Parse(raw)
		if perr != nil {
			return fmt.Errorf("hostbridge: %s: %w", hfsName, perr)
		}
		f.Type, f.Creator = ad.Type, ad.Creator
		if len(rsrc) > 0 {
			f.Rsrc = rsrc
		}
	}

	for _, name := range fileOrder {
		dir.Place(name, files[name])
	}
	return nil
}

// splitSidecar separates a host filename's base from a .idump/.rdump
// suffix.
func splitSidecar(name string) (base, suffix string) {
	if b, ok := strings.CutSuffix(name, ".idump"); ok {
		return b, ".idump"
	}
	if b, ok := strings.CutSuffix(name, ".rdump"); ok {
		return b, ".rdump"
	}
	return name, ""
}

// swapSeparatorIn recovers an HFS name (which may contain '/') from a host
// filename (which cannot, so the writer substitutes ':' for it).
func swapSeparatorIn(hostName string) string { return strings.ReplaceAll(hostName, ":", "/") }

// swapSeparatorOut is the inverse, used when writing a tree back to a host
// filesystem.
func swapSeparatorOut(hfsName string) string { return strings.ReplaceAll(hfsName, "/", ":") }

// transcodeTextForks applies convert to every TEXT file's data fork. Run as
// a separate pass over the whole tree (rather than inline during the scan)
// because a file's .idump sidecar naming it TEXT can be seen before or
// after its data fork, depending on directory order.
func transcodeTextForks(f *machfs.Folder, convert func([]byte) []byte) {
	for _, name := range f.Names() {
		child, _ := f.Get(name)
		switch c := child.(type) {
		case *machfs.File:
			if c.Type == textType {
				c.Data = convert(c.Data)
			}
		case *machfs.Folder:
			transcodeTextForks(c, convert)
		}
	}
}

func hostTextToMacRoman(data []byte) []byte {
	s := strings.ReplaceAll(string(data), "\r\n", "\r")
	s = strings.ReplaceAll(s, "\n", "\r")
	enc, err := charmap.Macintosh.NewEncoder().String(s)
	if err != nil {
		return data
	}
	return []byte(enc)
}

func macRomanTextToHost(data []byte) []byte {
	dec, err := charmap.Macintosh.NewDecoder().Bytes(data)
	if err != nil {
		dec = data
	}
	return []byte(strings.ReplaceAll(string(dec), "\r", "\n"))
}

// applyMPWDates overwrites every file's (and its ancestor folders are left
// alone -- only files carry a host mtime) timestamps with base+60*rank.
func applyMPWDates(top *machfs.Folder, base time.Time, realTimes map[*machfs.File]time.Time) {
	seen := make(map[time.Time]bool)
	var distinct []time.Time
	var collect func(f *machfs.Folder)
	collect = func(f *machfs.Folder) {
		for _, name := range f.Names() {
			child, _ := f.Get(name)
			switch c := child.(type) {
			case *machfs.File:
				if t, ok := realTimes[c]; ok && !seen[t] {
					seen[t] = true
					distinct = append(distinct, t)
				}
			case *machfs.Folder:
				collect(c)
			}
		}
	}
	collect(top)
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Before(distinct[j]) })
	rank := make(map[time.Time]int, len(distinct))
	for i, t := range distinct {
		rank[t] = i
	}

	var apply func(f *machfs.Folder)
	apply = func(f *machfs.Folder) {
		for _, name := range f.Names() {
			child, _ := f.Get(name)
			switch c := child.(type) {
			case *machfs.File:
				if t, ok := realTimes[c]; ok {
					fake := base.Add(time.Duration(rank[t]) * 60 * time.Second)
					c.CrDate, c.MdDate, c.BkDate = fake, fake, fake
				}
			case *machfs.Folder:
				apply(c)
			}
		}
	}
	apply(top)
}

// WriteOptions configures WriteDir.
type WriteOptions struct {
	// AppleDouble writes a "._name" sidecar carrying Finder info, dates,
	// the lock flag, and the resource fork, instead of the .idump/.rdump
	// convention.
	AppleDouble bool
}

// WriteDir writes top back out under root, recreating folders and writing
// each file's data fork plus its sidecar(s) as needed.
func WriteDir(top *machfs.Folder, root string, opts WriteOptions) error {
	var written []string
	if err := writeInto(top, root, opts, &written); err != nil {
		return err
	}
	if len(written) == 0 {
		return nil
	}
	info, err := os.Stat(written[len(written)-1])
	if err != nil {
		return fmt.Errorf("hostbridge: %w", err)
	}
	t := info.ModTime()
	for _, w := range written {
		if err := setMtime(w, t); err != nil {
			slog.Warn("hostbridge: could not set mtime", "path", w, "error", err)
		}
	}
	return nil
}

func writeInto(dir *machfs.Folder, hostDir string, opts WriteOptions, written *[]string) error {
	if err := os.MkdirAll(hostDir, 0o777); err != nil {
		return fmt.Errorf("hostbridge: %w", err)
	}
	for _, name := range dir.Names() {
		child, _ := dir.Get(name)
		childHostPath := filepath.Join(hostDir, swapSeparatorOut(name))

		switch c := child.(type) {
		case *machfs.Folder:
			if err := writeInto(c, childHostPath, opts, written); err != nil {
				return err
			}
		case *machfs.File:
			if err := writeFile(c, childHostPath, opts, written); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(f *machfs.File, hostPath string, opts WriteOptions, written *[]string) error {
	if f.MdDate.Equal(f.BkDate) && anyExists(hostPath) {
		return nil // unchanged since backup, skip rewriting
	}

	data := f.Data
	if f.Type == textType {
		data = macRomanTextToHost(data)
	}
	if err := os.WriteFile(hostPath, data, 0o666); err != nil {
		return fmt.Errorf("hostbridge: %w", err)
	}
	*written = append(*written, hostPath)

	if opts.AppleDouble {
		return writeAppleDoubleSidecar(f, hostPath, written)
	}

	rdumpPath := hostPath + ".rdump"
	if len(f.Rsrc) > 0 {
		if err := os.WriteFile(rdumpPath, f.Rsrc, 0o666); err != nil {
			return fmt.Errorf("hostbridge: %w", err)
		}
		*written = append(*written, rdumpPath)
	} else {
		os.Remove(rdumpPath)
	}

	idumpPath := hostPath + ".idump"
	info := append(append([]byte(nil), f.Type[:]...), f.Creator[:]...)
	if string(info) != "????????" {
		if err := os.WriteFile(idumpPath, info, 0o666); err != nil {
			return fmt.Errorf("hostbridge: %w", err)
		}
		*written = append(*written, idumpPath)
	} else {
		os.Remove(idumpPath)
	}
	return nil
}

func writeAppleDoubleSidecar(f *machfs.File, hostPath string, written *[]string) error {
	sidecarPath := appledouble.Sidecar(hostPath)
	if len(f.Rsrc) == 0 && f.Type == [4]byte{'?', '?', '?', '?'} && f.Creator == [4]byte{'?', '?', '?', '?'} {
		os.Remove(sidecarPath)
		return nil
	}
	ad := appledouble.AppleDouble{
		CreateTime: f.CrDate,
		ModTime:    f.MdDate,
		BkTime:     f.BkDate,
		Locked:     f.Locked,
		Flags:      f.Flags,
		Type:       f.Type,
		Creator:    f.Creator,
	}
	ad.Location.X, ad.Location.Y = f.X, f.Y
	buf := ad.BuildFileSidecar(f.Rsrc)
	if err := os.WriteFile(sidecarPath, buf, 0o666); err != nil {
		return fmt.Errorf("hostbridge: %w", err)
	}
	*written = append(*written, sidecarPath)
	return nil
}

func anyExists(hostPath string) bool {
	for _, p := range [...]string{hostPath, hostPath + ".rdump", hostPath + ".idump"} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}
