package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/peakform/funnel/core/funnel"
)

// seedFunnel loads a funnel definition from a JSON file and creates it.
func (cli *commandLine) seedFunnel(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var nf funnel.NewFunnel
	if err := json.Unmarshal(raw, &nf); err != nil {
		return err
	}
	if err := nf.Validate(cli.validate, cli.translator); err != nil {
		return err
	}

	f, err := cli.funnelSvc.Create(context.Background(), nf)
	if err != nil {
		return err
	}
	fmt.Printf("funnel created: %s (%s)\n", f.Name, f.ID)
	return nil
}
