// Command v6fsutil is a small CLI over the v6fs core: format images,
// create directories, and inspect their contents.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofsd/v6fs/dirent"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/presets"
	"github.com/gofsd/v6fs/v6fs"
	"github.com/gofsd/v6fs/vfile"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Usage: "Create and inspect UNIX v6 filesystem images",
		Commands: []*cli.Command{
			{
				Name:      "mkfs",
				Usage:     "Format a new image from a named geometry preset",
				ArgsUsage: "IMAGE_FILE PRESET_SLUG",
				Action:    mkfs,
			},
			{
				Name:      "mkdir",
				Usage:     "Create a directory inside an image",
				ArgsUsage: "IMAGE_FILE PATH",
				Action:    mkdir,
			},
			{
				Name:      "cat",
				Usage:     "Write a file's contents to stdout",
				ArgsUsage: "IMAGE_FILE PATH",
				Action:    cat,
			},
			{
				Name:      "ls",
				Usage:     "Print the directory tree rooted at /",
				ArgsUsage: "IMAGE_FILE",
				Action:    list,
			},
			{
				Name:      "superblock",
				Usage:     "Print the superblock of a mounted image",
				ArgsUsage: "IMAGE_FILE",
				Action:    superblock,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func mkfs(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: mkfs IMAGE_FILE PRESET_SLUG")
	}
	path := c.Args().Get(0)
	geometry, err := presets.Get(c.Args().Get(1))
	if err != nil {
		return err
	}

	image, err := os.Create(path)
	if err != nil {
		return err
	}
	defer image.Close()

	if err := image.Truncate(int64(geometry.NumBlocks) * 512); err != nil {
		return err
	}

	return v6fs.Mkfs(image, geometry.NumBlocks, geometry.NumInodes)
}

func openImage(path string) (*v6fs.FileSystem, error) {
	image, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	fs, err := v6fs.Mount(image)
	if err != nil {
		image.Close()
		return nil, err
	}
	return fs, nil
}

func mkdir(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: mkdir IMAGE_FILE PATH")
	}
	fs, err := openImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer fs.Umount()

	_, err = dirent.Create(fs.Inodes, fs.IBM, fs.FBM, c.Args().Get(1), inode.IALLOC|inode.IFDIR)
	return err
}

func cat(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: cat IMAGE_FILE PATH")
	}
	fs, err := openImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer fs.Umount()

	inr, err := dirent.Lookup(fs.Inodes, fs.FBM, dirent.RootInumber, c.Args().Get(1))
	if err != nil {
		return err
	}
	fd, err := vfile.Open(fs.Inodes, fs.FBM, inr)
	if err != nil {
		return err
	}
	data, err := vfile.ReadAll(fd)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func list(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: ls IMAGE_FILE")
	}
	fs, err := openImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer fs.Umount()

	return dirent.PrintTree(os.Stdout, fs.Inodes, fs.FBM, dirent.RootInumber, "")
}

func superblock(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: superblock IMAGE_FILE")
	}
	fs, err := openImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer fs.Umount()

	v6fs.PrintSuperblock(os.Stdout, fs.Super)
	return nil
}
