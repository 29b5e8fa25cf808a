package command

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const minKeyBytes = 32

// KeyCommand generates signing keys in keyring file form.
func KeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "signing key utilities",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "print a new keyring entry",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "key id (default: a new ULID)"},
					&cli.IntFlag{Name: "bytes", Value: minKeyBytes},
				},
				Action: generateKey,
			},
		},
	}
}

type keyEntry struct {
	ID     string `yaml:"id"`
	Secret string `yaml:"secret"`
}

func generateKey(c *cli.Context) error {
	n := c.Int("bytes")
	if n < minKeyBytes {
		return fmt.Errorf("key must be at least %d bytes", minKeyBytes)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	id := c.String("id")
	if id == "" {
		id = ulid.Make().String()
	}
	out, err := yaml.Marshal([]keyEntry{{ID: id, Secret: base64.RawURLEncoding.EncodeToString(buf)}})
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(out)
	return err
}
