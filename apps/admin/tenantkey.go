package main

import (
	"context"
	"fmt"

	"github.com/peakform/funnel/core"
)

// addTenantKey hashes and stores an API key for an org. Re-running replaces the key.
func (cli *commandLine) addTenantKey(orgID, key string) error {
	orgID = core.CleanString(orgID)

	if _, err := cli.tenantSvc.IssueKey(context.Background(), orgID, key); err != nil {
		return err
	}
	fmt.Printf("API key issued for org %s\n", orgID)
	return nil
}
