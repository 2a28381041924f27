package main

import (
	"context"
	"fmt"

	"github.com/a-h/formfill"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(formfill.Version)
	return nil
}
