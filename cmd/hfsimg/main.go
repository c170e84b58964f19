// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Command hfsimg builds, extracts, and compares classic Mac OS HFS volume
// images from the command line: a thin wrapper around package machfs and
// internal/hostbridge, with no subcommand framework beyond the standard
// library's flag package.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/therootcompany/xz"

	"github.com/elliotnunn/machfs"
	"github.com/elliotnunn/machfs/internal/hostbridge"
	"github.com/elliotnunn/machfs/internal/volumecache"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "make":
		err = runMake(os.Args[2:])
	case "dump":
		err = runDump(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "hfsimg:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  hfsimg make   [flags] <hostdir> <image>
  hfsimg dump   [flags] <image> <hostdir>
  hfsimg verify [flags] <imageA> <imageB>`)
}

func runMake(args []string) error {
	fs := flag.NewFlagSet("make", flag.ExitOnError)
	size := fs.Int("size", 0, "image size in bytes (0 = 800KiB)")
	align := fs.Int("align", 0, "allocation-block alignment in bytes (0 = 512)")
	bootable := fs.Bool("bootable", false, "patch boot blocks from an embedded System file")
	desktopdb := fs.Bool("desktopdb", false, "splice in transient Desktop/Desktop DB/Desktop DF placeholders")
	startApp := fs.String("startapp", "", "startup application path, HFS-separator components joined by /")
	exclude := fs.String("exclude", "", "doublestar glob of host entries to skip")
	name := fs.String("name", "", "volume name (default: hostdir's base name)")
	appledouble := fs.Bool("appledouble", false, "read Finder info and resource forks from \"._name\" AppleDouble sidecars")
	mpwdates := fs.Bool("mpwdates", false, "fake monotonically increasing creation times from host mtime order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("make: need <hostdir> and <image> arguments")
	}
	hostDir, imagePath := fs.Arg(0), fs.Arg(1)

	root, err := hostbridge.ReadDir(hostDir, hostbridge.ReadOptions{
		Exclude:     *exclude,
		AppleDouble: *appledouble,
		MPWDates:    *mpwdates,
	})
	if err != nil {
		return err
	}

	volName := *name
	if volName == "" {
		volName = strings.TrimRight(hostDir, "/")
		if i := strings.LastIndexByte(volName, '/'); i >= 0 {
			volName = volName[i+1:]
		}
	}

	v := &machfs.Volume{Folder: *root, Name: volName}

	opts := machfs.WriteOptions{
		Size:      *size,
		Align:     *align,
		Desktopdb: *desktopdb,
		Bootable:  *bootable,
	}
	if *startApp != "" {
		opts.StartApp = strings.Split(*startApp, "/")
	}

	img, err := v.Write(opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(imagePath, img, 0o666); err != nil {
		return fmt.Errorf("hfsimg: %w", err)
	}
	slog.Info("wrote image", "path", imagePath, "bytes", len(img))
	return nil
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	useCache := fs.Bool("cache", false, "share a tinylfu-backed parsed-volume cache across inputs")
	appledouble := fs.Bool("appledouble", false, "write Finder info and resource forks to \"._name\" AppleDouble sidecars")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("dump: need <image> and <hostdir> arguments")
	}
	imagePath, hostDir := fs.Arg(0), fs.Arg(1)

	v, err := loadVolume(imagePath, *useCache)
	if err != nil {
		return err
	}

	if err := hostbridge.WriteDir(&v.Folder, hostDir, hostbridge.WriteOptions{AppleDouble: *appledouble}); err != nil {
		return err
	}
	slog.Info("dumped image", "path", imagePath, "hostdir", hostDir)
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	useCache := fs.Bool("cache", false, "share a tinylfu-backed parsed-volume cache across inputs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("verify: need two <image> arguments")
	}
	pathA, pathB := fs.Arg(0), fs.Arg(1)

	rawA, err := readPossiblyCompressed(pathA)
	if err != nil {
		return err
	}
	rawB, err := readPossiblyCompressed(pathB)
	if err != nil {
		return err
	}

	if *useCache {
		// Touch the cache so repeated verify runs in one process over the
		// same fixture set reuse a prior parse instead of re-parsing.
		cache := sharedCache()
		if _, err := cache.Load(pathA); err != nil {
			return err
		}
		if _, err := cache.Load(pathB); err != nil {
			return err
		}
	}

	if volumecache.ContentHash(rawA) == volumecache.ContentHash(rawB) && bytes.Equal(rawA, rawB) {
		fmt.Println("identical")
		return nil
	}

	reportDiff(rawA, rawB)
	return fmt.Errorf("verify: %s and %s differ", pathA, pathB)
}

var globalCache *volumecache.Cache

func sharedCache() *volumecache.Cache {
	if globalCache == nil {
		globalCache = volumecache.New(64)
	}
	return globalCache
}

func loadVolume(path string, useCache bool) (*machfs.Volume, error) {
	if useCache {
		return sharedCache().Load(path)
	}
	raw, err := readPossiblyCompressed(path)
	if err != nil {
		return nil, err
	}
	v := &machfs.Volume{}
	if err := v.Read(raw); err != nil {
		return nil, err
	}
	return v, nil
}

// readPossiblyCompressed reads path, transparently decompressing it if it
// is xz-compressed (".img.xz" fixtures, for instance).
func readPossiblyCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hfsimg: %w", err)
	}
	defer f.Close()

	magic := make([]byte, 6)
	n, _ := io.ReadFull(f, magic)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("hfsimg: %w", err)
	}

	if n == 6 && bytes.Equal(magic, []byte("\xfd7zXZ\x00")) {
		r, err := xz.NewReader(f, xz.DefaultDictMax)
		if err != nil {
			return nil, fmt.Errorf("hfsimg: %w", err)
		}
		return io.ReadAll(r)
	}
	return io.ReadAll(f)
}

// reportDiff prints the byte offset and the two byte values of the first
// difference between two images, or both lengths when one image is a
// prefix of the other, rather than a full binary diff.
func reportDiff(a, b []byte) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			fmt.Printf("first difference at byte %d: %#02x vs %#02x\n", i, a[i], b[i])
			return
		}
	}
	fmt.Printf("common prefix of %d bytes, then length differs: %d vs %d\n", n, len(a), len(b))
}
