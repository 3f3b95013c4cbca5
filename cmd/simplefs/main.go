// Command simplefs is a non-interactive CLI over the simplefs package:
// one host-file image, one subcommand per invocation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-simplefs/simplefs"
	"github.com/go-simplefs/simplefs/internal/fuseops"
)

const usage = `simplefs - block-structured filesystem CLI

Usage:
  simplefs format <image> <blocks>            Create a new filesystem image
  simplefs ls <image> [<path>]                List a directory's children
  simplefs cat <image> <path>                  Print a file's contents
  simplefs put <image> <path> <localfile>     Write a local file's contents into <path>
  simplefs mkdir <image> <path>                Create a directory
  simplefs rm <image> <path>                   Remove a file
  simplefs rmdir <image> <path>                Remove a directory and everything under it
  simplefs info <image>                        Show block size and free space
  simplefs mount <image> <mountpoint>          Mount the filesystem via FUSE
  simplefs help                                Show this help message
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "format":
		err = cmdFormat(os.Args[2:])
	case "ls":
		err = cmdLs(os.Args[2:])
	case "cat":
		err = cmdCat(os.Args[2:])
	case "put":
		err = cmdPut(os.Args[2:])
	case "mkdir":
		err = cmdMkdir(os.Args[2:])
	case "rm":
		err = cmdRm(os.Args[2:])
	case "rmdir":
		err = cmdRmdir(os.Args[2:])
	case "info":
		err = cmdInfo(os.Args[2:])
	case "mount":
		err = cmdMount(os.Args[2:])
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Printf("Error: unknown command %q\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func cmdFormat(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: simplefs format <image> <blocks>")
	}
	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid block count %q: %w", args[1], err)
	}
	fsys, err := simplefs.Format(args[0], uint32(n))
	if err != nil {
		return err
	}
	return fsys.Close()
}

// splitPath turns a slash-separated path like "a/b/c" into its
// components, ignoring a leading slash and collapsing empty segments.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" || path == "." {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// resolveDir walks path from the root, returning a handle to the
// directory it names.
func resolveDir(fsys *simplefs.Filesystem, path string) (simplefs.DirHandle, error) {
	dir := fsys.OpenRoot()
	for _, part := range splitPath(path) {
		var err error
		dir, err = fsys.ChangeDir(dir, part)
		if err != nil {
			return simplefs.DirHandle{}, err
		}
	}
	return dir, nil
}

// resolveParent walks all but the last component of path and returns
// the parent directory handle plus the final component's name.
func resolveParent(fsys *simplefs.Filesystem, path string) (simplefs.DirHandle, string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return simplefs.DirHandle{}, "", fmt.Errorf("empty path")
	}
	dir := fsys.OpenRoot()
	for _, part := range parts[:len(parts)-1] {
		var err error
		dir, err = fsys.ChangeDir(dir, part)
		if err != nil {
			return simplefs.DirHandle{}, "", err
		}
	}
	return dir, parts[len(parts)-1], nil
}

func cmdLs(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: simplefs ls <image> [<path>]")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	dir, err := resolveDir(fsys, path)
	if err != nil {
		return err
	}
	names, err := fsys.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, name := range names {
		child, err := fsys.OpenFile(dir, name)
		if err != nil {
			return err
		}
		st, err := fsys.Stat(child.First)
		if err != nil {
			return err
		}
		typeChar := "-"
		size := fmt.Sprintf("%8d", st.SizeInBytes)
		if st.IsDir {
			typeChar = "d"
			size = "       -"
		}
		fmt.Printf("%s %s %s\n", typeChar, size, name)
	}
	return nil
}

func cmdCat(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: simplefs cat <image> <path>")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	dir, name, err := resolveParent(fsys, args[1])
	if err != nil {
		return err
	}
	fh, err := fsys.OpenFile(dir, name)
	if err != nil {
		return err
	}
	st, err := fsys.Stat(fh.First)
	if err != nil {
		return err
	}
	if st.IsDir {
		return simplefs.ErrNotAFile
	}
	buf := make([]byte, st.SizeInBytes)
	n, err := fsys.Read(fh, buf)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(buf[:n])
	return err
}

func cmdPut(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: simplefs put <image> <path> <localfile>")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	data, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}

	dir, name, err := resolveParent(fsys, args[1])
	if err != nil {
		return err
	}
	fh, err := fsys.OpenFile(dir, name)
	if err != nil {
		if !simplefs.IsNotFound(err) {
			return err
		}
		fh, err = fsys.CreateFile(dir, name)
		if err != nil {
			return err
		}
	}
	_, err = fsys.Write(fh, data)
	return err
}

func cmdMkdir(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: simplefs mkdir <image> <path>")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	dir, name, err := resolveParent(fsys, args[1])
	if err != nil {
		return err
	}
	_, err = fsys.MkDir(dir, name)
	return err
}

func cmdRm(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: simplefs rm <image> <path>")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	dir, name, err := resolveParent(fsys, args[1])
	if err != nil {
		return err
	}
	fh, err := fsys.OpenFile(dir, name)
	if err != nil {
		return err
	}
	_, err = fsys.RemoveFile(fh)
	return err
}

func cmdRmdir(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: simplefs rmdir <image> <path>")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	target, err := resolveDir(fsys, args[1])
	if err != nil {
		return err
	}
	_, err = fsys.RemoveDir(target)
	return err
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: simplefs info <image>")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	fmt.Println("simplefs image information")
	fmt.Println("===========================")
	fmt.Printf("Block size:       %d bytes\n", simplefs.BlockSize)
	fmt.Printf("Free blocks:      %d\n", fsys.CheckFreeSpace())
	return nil
}

func cmdMount(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: simplefs mount <image> <mountpoint>")
	}
	fsys, err := simplefs.Open(args[0])
	if err != nil {
		return err
	}
	defer fsys.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return fuseops.Mount(ctx, fsys, args[1], false, nil)
}
