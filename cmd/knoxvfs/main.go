// Command knoxvfs is a small demonstration CLI over the knoxvfs
// library: create an image, import a manifest of files into it, list
// and read entries back out, or drop into an interactive shell.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/knoxvfs/knoxvfs"
	"github.com/knoxvfs/knoxvfs/knoxfs"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "knoxvfs:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: knoxvfs <create|ls|cat|cp|import|shell> ...")
	}
	switch args[0] {
	case "create":
		return cmdCreate(args[1:])
	case "ls":
		return cmdLs(args[1:])
	case "cat":
		return cmdCat(args[1:])
	case "cp":
		return cmdCp(args[1:])
	case "import":
		return cmdImport(args[1:])
	case "shell":
		return cmdShell(args[1:])
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func openImageFlags(fs *flag.FlagSet) (image string, password string) {
	fs.StringVar(&image, "image", "", "path to the knoxvfs image")
	fs.StringVar(&password, "password", "", "image password")
	return
}

func cmdCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	image, password := openImageFlags(fs)
	blocks := fs.Uint64("blocks", 4096, "number of blocks in the new image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	im, err := knoxvfs.Create(image, *blocks, password)
	if err != nil {
		return err
	}
	return im.Close()
}

func cmdLs(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	image, password := openImageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := "/"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	im, err := knoxvfs.Open(image, password)
	if err != nil {
		return err
	}
	defer im.Close()
	entries, err := im.List(path)
	if err != nil {
		return err
	}
	printEntries(entries)
	return nil
}

func printEntries(entries []knoxfs.EntryInfo) {
	for _, e := range entries {
		kind := "file"
		if !e.IsFile {
			kind = "dir"
		}
		fmt.Printf("%-4s %8d  %s\n", kind, e.Size, e.Name)
	}
}

func cmdCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	image, password := openImageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: knoxvfs cat --image=... --password=... <path>")
	}
	im, err := knoxvfs.Open(image, password)
	if err != nil {
		return err
	}
	defer im.Close()
	f, err := im.OpenFile(fs.Arg(0), knoxfs.ReadOnly())
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(os.Stdout, f)
	return err
}

func cmdCp(args []string) error {
	fs := flag.NewFlagSet("cp", flag.ExitOnError)
	image, password := openImageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: knoxvfs cp --image=... --password=... <host-src> <image-dst>")
	}
	im, err := knoxvfs.Open(image, password)
	if err != nil {
		return err
	}
	defer im.Close()
	return copyIn(im, fs.Arg(0), fs.Arg(1))
}

func copyIn(im *knoxvfs.Image, hostSrc, imageDst string) error {
	data, err := os.ReadFile(hostSrc)
	if err != nil {
		return err
	}
	if _, err := im.Stat(imageDst); err != nil {
		if _, err := im.AddFile(imageDst); err != nil {
			return err
		}
	}
	f, err := im.OpenFile(imageDst, knoxfs.AppendOnly())
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// manifestEntry is one row of an import manifest: a host path to
// read and the destination path inside the image.
type manifestEntry struct {
	Host string `json:"host"`
	Dest string `json:"dest"`
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	image, password := openImageFlags(fs)
	manifestPath := fs.String("manifest", "", "hujson manifest of {host,dest} pairs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		return err
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}
	var entries []manifestEntry
	if err := json.Unmarshal(std, &entries); err != nil {
		return fmt.Errorf("decoding manifest: %w", err)
	}

	im, err := knoxvfs.Open(image, password)
	if err != nil {
		return err
	}
	defer im.Close()

	for _, e := range entries {
		if err := copyIn(im, e.Host, e.Dest); err != nil {
			return fmt.Errorf("importing %s: %w", e.Host, err)
		}
	}
	return nil
}

func cmdShell(args []string) error {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	image, password := openImageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	im, err := knoxvfs.Open(image, password)
	if err != nil {
		return err
	}
	defer im.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("knoxvfs> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				return nil
			}
			return err
		}
		line.AppendHistory(input)
		if err := dispatchShellLine(im, strings.TrimSpace(input)); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func dispatchShellLine(im *knoxvfs.Image, input string) error {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "ls":
		path := "/"
		if len(fields) > 1 {
			path = fields[1]
		}
		entries, err := im.List(path)
		if err != nil {
			return err
		}
		printEntries(entries)
	case "stat":
		if len(fields) != 2 {
			return fmt.Errorf("usage: stat <path>")
		}
		info, err := im.Stat(fields[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s size=%d firstBlock=%d isFile=%v\n", info.Name, info.Size, info.FirstBlock, info.IsFile)
	case "mkdir":
		if len(fields) != 2 {
			return fmt.Errorf("usage: mkdir <path>")
		}
		_, err := im.AddFolder(fields[1])
		return err
	case "rm":
		if len(fields) != 2 {
			return fmt.Errorf("usage: rm <path>")
		}
		return im.Remove(fields[1], false)
	case "statvfs":
		stat := im.StatVFS()
		fmt.Printf("blockSize=%d blockCount=%d freeBlocks=%d maxNameLen=%d\n",
			stat.BlockSize, stat.BlockCount, stat.FreeBlocks, stat.MaxNameLen)
	case "quit", "exit":
		return fmt.Errorf("use Ctrl-D to exit")
	default:
		return fmt.Errorf("unknown command %q (try ls, stat, mkdir, rm, statvfs)", fields[0])
	}
	return nil
}
