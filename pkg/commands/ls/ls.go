// Package ls implements the ls command.
package ls

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Options holds ls command options.
type Options struct {
	All       bool // -a: show hidden files
	AlmostAll bool // -A: show hidden except . and ..
	Long      bool // -l: long format
	Human     bool // -h: human-readable sizes
	Recursive bool // -R: recursive listing
	Reverse   bool // -r: reverse sort order
	SortTime  bool // -t: sort by modification time
	SortSize  bool // -S: sort by size
	NoSort    bool // -f: do not sort
	Classify  bool // -F: append indicator to entries
	DirSlash  bool // -p: append / to directories
	Directory bool // -d: list directories themselves
}

type entry struct {
	name string
	path string
	info vfs.FileInfo
}

// Run executes the ls command with the given arguments.
//
// Output is never a terminal inside the sandbox, so entries are always
// printed one per line.
//
// Supported flags:
//
//	-a    Show all entries including those starting with .
//	-A    Show all except . and ..
//	-l    Use long listing format
//	-h    Human-readable sizes (with -l)
//	-1    One entry per line
//	-R    List directories recursively
//	-r    Reverse sort order
//	-t    Sort by modification time
//	-S    Sort by file size
//	-f    Do not sort (implies -a)
//	-F    Append indicator (/*) to entries
//	-p    Append / to directories
//	-d    List directories themselves, not their contents
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	opts := Options{}
	paths, code := core.ParseBoolFlags(stdio, "ls", args, map[byte]*bool{
		'a': &opts.All,
		'A': &opts.AlmostAll,
		'l': &opts.Long,
		'h': &opts.Human,
		'1': nil,
		'R': &opts.Recursive,
		'r': &opts.Reverse,
		't': &opts.SortTime,
		'S': &opts.SortSize,
		'f': &opts.NoSort,
		'F': &opts.Classify,
		'p': &opts.DirSlash,
		'd': &opts.Directory,
	}, nil)
	if code != core.ExitSuccess {
		return code
	}
	if opts.NoSort {
		opts.All = true
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	exitCode := core.ExitSuccess
	var files, dirs []entry
	for _, p := range paths {
		full := env.Path(p)
		info, err := env.FS.Stat(full)
		if err != nil {
			stdio.Errorf("ls: cannot access '%s': %s\n", p, vfs.ErrorText(err))
			exitCode = core.ExitFailure
			continue
		}
		e := entry{name: p, path: full, info: info}
		if info.IsDir && !opts.Directory {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}

	sortEntries(files, &opts)
	sortEntries(dirs, &opts)
	for _, e := range files {
		printEntry(stdio, e, &opts)
	}
	headers := len(paths) > 1 || opts.Recursive
	for i, d := range dirs {
		if i > 0 || len(files) > 0 {
			stdio.Println()
		}
		if headers {
			stdio.Printf("%s:\n", d.name)
		}
		if err := listDir(stdio, env, d, &opts); err != nil {
			exitCode = core.ExitFailure
		}
	}

	return exitCode
}

func listDir(stdio *core.Stdio, env *core.Env, dir entry, opts *Options) error {
	names, err := env.FS.ReadDir(dir.path)
	if err != nil {
		stdio.Errorf("ls: cannot open directory '%s': %s\n", dir.name, vfs.ErrorText(err))
		return err
	}

	var entries []entry
	if opts.All {
		for _, special := range []string{".", ".."} {
			info, err := env.FS.Stat(path.Join(dir.path, special))
			if err == nil {
				entries = append(entries, entry{name: special, path: path.Join(dir.path, special), info: info})
			}
		}
	}
	for _, name := range names {
		if !opts.All && !opts.AlmostAll && strings.HasPrefix(name, ".") {
			continue
		}
		full := path.Join(dir.path, name)
		info, err := env.FS.Stat(full)
		if err != nil {
			stdio.Errorf("ls: cannot access '%s': %s\n", name, vfs.ErrorText(err))
			continue
		}
		entries = append(entries, entry{name: name, path: full, info: info})
	}

	if !opts.NoSort {
		sortEntries(entries, opts)
	}

	if opts.Long {
		var totalBlocks int64
		for _, e := range entries {
			totalBlocks += blocks(e.info)
		}
		stdio.Printf("total %d\n", totalBlocks)
	}
	for _, e := range entries {
		printEntry(stdio, e, opts)
	}

	if opts.Recursive {
		for _, e := range entries {
			if e.info.IsDir && e.name != "." && e.name != ".." {
				sub := entry{name: path.Join(dir.name, e.name), path: e.path, info: e.info}
				stdio.Printf("\n%s:\n", sub.name)
				_ = listDir(stdio, env, sub, opts)
			}
		}
	}

	return nil
}

func sortEntries(entries []entry, opts *Options) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if opts.Reverse {
			a, b = b, a
		}
		switch {
		case opts.SortTime && !a.info.ModTime.Equal(b.info.ModTime):
			return a.info.ModTime.After(b.info.ModTime)
		case opts.SortSize && a.info.Size != b.info.Size:
			return a.info.Size > b.info.Size
		}
		return a.name < b.name
	})
}

func printEntry(stdio *core.Stdio, e entry, opts *Options) {
	if opts.Long {
		sizeStr := fmt.Sprintf("%d", e.info.Size)
		if opts.Human {
			sizeStr = humanSize(e.info.Size)
		}
		nlink := 1
		if e.info.IsDir {
			nlink = 2
		}
		stdio.Printf("%s %2d %-8s %-8s %8s %s %s", e.info.Mode.String(), nlink, "user", "user", sizeStr, formatTime(e.info.ModTime), e.name)
	} else {
		stdio.Print(e.name)
	}

	if opts.Classify {
		stdio.Print(classifyChar(e.info))
	} else if opts.DirSlash && e.info.IsDir {
		stdio.Print("/")
	}
	stdio.Println()
}

func classifyChar(info vfs.FileInfo) string {
	if info.IsDir {
		return "/"
	}
	if info.Mode&0111 != 0 {
		return "*"
	}
	return ""
}

func formatTime(t time.Time) string {
	now := time.Now()
	sixMonthsAgo := now.AddDate(0, -6, 0)
	if t.Before(sixMonthsAgo) || t.After(now.AddDate(0, 0, 1)) {
		return t.Format("Jan _2  2006")
	}
	return t.Format("Jan _2 15:04")
}

// blocks estimates 1K blocks from the size, rounding up to 4K.
func blocks(info vfs.FileInfo) int64 {
	return (info.Size + 4095) / 4096 * 4
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(size)/float64(div), "KMGTPE"[exp])
}
