package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func withArgs(t *testing.T, args []string, fn func(c *cli.Command)) {
	t.Helper()

	cmd := &cli.Command{
		Name: "test",
		Action: func(_ context.Context, c *cli.Command) error {
			fn(c)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
}

func TestIDArgs(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		withArgs(t, []string{"12", "7", "hello", "there"}, func(c *cli.Command) {
			ids, err := idArgs(c, "id", "threadhead")
			require.NoError(t, err)
			require.Equal(t, []int64{12, 7}, ids)

			text, err := textArg(c, 2, "message")
			require.NoError(t, err)
			require.Equal(t, "hello there", text)
		})
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		withArgs(t, []string{"12"}, func(c *cli.Command) {
			_, err := idArgs(c, "id", "threadhead")
			require.ErrorIs(t, err, ErrInvalidArgs)

			_, err = textArg(c, 1, "message")
			require.ErrorIs(t, err, ErrInvalidArgs)
		})
	})

	t.Run("not a number", func(t *testing.T) {
		t.Parallel()

		withArgs(t, []string{"abc", "0"}, func(c *cli.Command) {
			_, err := idArg(c, 0, "id")
			require.ErrorIs(t, err, ErrInvalidArgs)

			_, err = idArg(c, 1, "id")
			require.ErrorIs(t, err, ErrInvalidArgs)
		})
	})
}
