package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/a-h/formfill/client"
)

type ContextCommand struct {
	ServerURL string `help:"The URL of the form fill server." env:"FORMFILL_URL" default:"http://localhost:8000"`
	APIKey    string `help:"The API key for the form fill server." env:"FORMFILL_API_KEY" default:""`
	ID        string `help:"The ID of the context to inspect." required:""`
	Pretty    bool   `help:"Pretty print the JSON output." default:"true"`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ContextCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.ServerURL, c.APIKey)
	resp, err := rsc.ContextGet(ctx, c.ID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
