// Package head implements the head command.
package head

import (
	"bufio"
	"io"

	"github.com/rcarmo/sandsh/pkg/core"
)

// Run executes the head command with the given arguments.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	return core.RunHeadTail(stdio, env, "head", args, headFile)
}

func headFile(stdio *core.Stdio, env *core.Env, path string, opts *core.HeadTailOptions) error {
	reader, err := env.Open(stdio, path)
	if err != nil {
		core.FileError(stdio, "head", path, err)
		return err
	}

	if opts.Bytes >= 0 {
		buf := make([]byte, opts.Bytes)
		n, err := io.ReadFull(reader, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		_, err = stdio.Out.Write(buf[:n])
		return err
	}

	br := bufio.NewReader(reader)
	for i := 0; i < opts.Lines; i++ {
		line, err := br.ReadString('\n')
		stdio.Print(line)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}
