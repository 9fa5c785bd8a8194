// Command blockfsctl is a reference CLI for exercising a filesystem image
// outside of a test binary: format a fresh image, create directories and
// files, move bytes in and out, and inspect capacity.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/msaf1980/blockfs/fs"
	"github.com/msaf1980/blockfs/host"
)

func main() {
	app := &cli.App{
		Name:  "blockfsctl",
		Usage: "inspect and edit a block filesystem image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Required: true, Usage: "path to the image file"},
			&cli.Int64Flag{Name: "io-size", Value: host.DefaultIOSize, Usage: "native I/O unit size in bytes"},
		},
		Commands: []*cli.Command{
			formatCommand,
			mkdirCommand,
			mknodCommand,
			writeCommand,
			catCommand,
			lsCommand,
			dfCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("blockfsctl: %v", err)
	}
}

func mount(c *cli.Context, readOnly bool) (*fs.Filesystem, error) {
	return host.MountFile(c.String("image"), c.Int64("io-size"), fs.MountOptions{ReadOnly: readOnly})
}

var formatCommand = &cli.Command{
	Name:  "format",
	Usage: "write a fresh, empty filesystem to the image",
	Action: func(c *cli.Context) error {
		return host.FormatFile(c.String("image"), c.Int64("io-size"))
	},
}

var mkdirCommand = &cli.Command{
	Name:      "mkdir",
	Usage:     "create a directory",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("mkdir requires exactly one path argument")
		}
		fsys, err := mount(c, false)
		if err != nil {
			return err
		}
		defer fsys.Unmount()
		return fsys.Mkdir(c.Args().First())
	},
}

var mknodCommand = &cli.Command{
	Name:      "mknod",
	Usage:     "create an empty regular file",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("mknod requires exactly one path argument")
		}
		fsys, err := mount(c, false)
		if err != nil {
			return err
		}
		defer fsys.Unmount()
		return fsys.Mknod(c.Args().First())
	},
}

var writeCommand = &cli.Command{
	Name:      "write",
	Usage:     "write stdin to a file, starting at an offset",
	ArgsUsage: "<path>",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "offset", Value: 0},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("write requires exactly one path argument")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		fsys, err := mount(c, false)
		if err != nil {
			return err
		}
		defer fsys.Unmount()
		_, err = fsys.Write(c.Args().First(), c.Int64("offset"), data)
		return err
	},
}

var catCommand = &cli.Command{
	Name:      "cat",
	Usage:     "print a file's contents to stdout",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("cat requires exactly one path argument")
		}
		fsys, err := mount(c, true)
		if err != nil {
			return err
		}
		defer fsys.Unmount()

		info, err := fsys.Stat(c.Args().First())
		if err != nil {
			return err
		}
		buf := make([]byte, info.Size)
		n, err := fsys.Read(c.Args().First(), 0, buf)
		if err != nil && n == 0 {
			return err
		}
		_, werr := os.Stdout.Write(buf[:n])
		return werr
	},
}

var lsCommand = &cli.Command{
	Name:      "ls",
	Usage:     "list a directory's entries",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		path := "/"
		if c.Args().Len() == 1 {
			path = c.Args().First()
		}
		fsys, err := mount(c, true)
		if err != nil {
			return err
		}
		defer fsys.Unmount()

		entries, err := fsys.Readdir(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s\t%s\n", e.Type, e.Name)
		}
		return nil
	},
}

var dfCommand = &cli.Command{
	Name:  "df",
	Usage: "report inode and data block usage",
	Action: func(c *cli.Context) error {
		fsys, err := mount(c, true)
		if err != nil {
			return err
		}
		defer fsys.Unmount()

		stat := fsys.FSStat()
		fmt.Printf("inodes: %d/%d used\n", stat.UsedInodes, stat.TotalInodes)
		fmt.Printf("data blocks: %d/%d used\n", stat.UsedDataBlock, stat.TotalDataBlock)
		fmt.Printf("block size: %d bytes\n", stat.BlockSize)
		return nil
	},
}
