package reconcile

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
)

// listFiles returns the slash-separated paths of every file under root,
// relative to root and sorted. Directories named in skip are not entered.
// A missing root yields no files.
func listFiles(root string, skip map[string]bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if skip[rel] {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("walk", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// copyTree copies the tree at src into dst, creating dst as needed and
// overwriting files that already exist.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WrapIO("walk", p, err)
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return errors.WrapIO("create", target, os.MkdirAll(target, constants.DirPermissions))
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return errors.WrapIO("read", p, err)
			}
			_ = os.Remove(target)
			return errors.WrapIO("create", target, os.Symlink(link, target))
		case d.Type().IsRegular():
			return copyFile(p, target)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.WrapIO("read", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.WrapIO("read", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return errors.WrapIO("write", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.WrapIO("copy", dst, err)
	}
	return errors.WrapIO("write", dst, out.Close())
}

// clearExcept removes dst and everything under it except the directories
// named in keep (slash-separated, relative to dst) and their ancestors.
func clearExcept(dst string, keep map[string]bool) error {
	if len(keep) == 0 {
		return removeAll(dst)
	}
	entries, err := os.ReadDir(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.WrapIO("read", dst, err)
	}
	for _, e := range entries {
		name := e.Name()
		if keep[name] {
			continue
		}
		p := filepath.Join(dst, name)
		inner := make(map[string]bool)
		for k := range keep {
			if rest, ok := strings.CutPrefix(k, name+"/"); ok {
				inner[rest] = true
			}
		}
		if len(inner) > 0 && e.IsDir() {
			if err := clearExcept(p, inner); err != nil {
				return err
			}
			continue
		}
		if err := removeAll(p); err != nil {
			return err
		}
	}
	return nil
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
