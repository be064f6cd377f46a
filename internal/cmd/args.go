package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
)

var ErrInvalidArgs = errors.New("invalid arguments")

func idArg(c *cli.Command, i int, name string) (int64, error) {
	raw := c.Args().Get(i)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidArgs, name)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", ErrInvalidArgs, name, raw)
	}
	return id, nil
}

func idArgs(c *cli.Command, names ...string) ([]int64, error) {
	ids := make([]int64, len(names))
	for i, name := range names {
		id, err := idArg(c, i, name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// textArg joins the arguments from position i on.
func textArg(c *cli.Command, i int, name string) (string, error) {
	args := c.Args().Slice()
	if len(args) <= i {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgs, name)
	}

	text := strings.TrimSpace(strings.Join(args[i:], " "))
	if text == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgs, name)
	}
	return text, nil
}
