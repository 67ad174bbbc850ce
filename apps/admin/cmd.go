package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/tenant"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errPGRequired = errors.New("this command requires the postgres engine")
)

type commandLine struct {
	conf       *core.Config
	db         *sql.DB // nil unless engine is postgres
	funnelSvc  *funnel.Service
	tenantSvc  *tenant.Service
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                                - create the database and app user if missing")
	fmt.Println("  migrate GOOSE_COMMAND [args]            - run DB migrations (up, down, status, ...)")
	fmt.Println("  seedfunnel -file FILE                   - load a funnel definition from a JSON file")
	fmt.Println("  addtenantkey -org ORG_ID                - issue an API key for a tenant org. The key will be prompted next.")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedFunnelCmd := flag.NewFlagSet("seedfunnel", flag.ExitOnError)
	seedFunnelFile := seedFunnelCmd.String("file", "", "Path to a JSON funnel definition.")

	addTenantKeyCmd := flag.NewFlagSet("addtenantkey", flag.ExitOnError)
	addTenantKeyOrg := addTenantKeyCmd.String("org", "", "The tenant's organization id. The raw key will be prompted next.")

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if cli.db == nil {
			return errPGRequired
		}
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seedfunnel":
		if err := seedFunnelCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedFunnelFile == "" {
			seedFunnelCmd.Usage()
			return errHelp
		}
		return cli.seedFunnel(*seedFunnelFile)
	case "addtenantkey":
		if err := addTenantKeyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTenantKeyOrg == "" {
			addTenantKeyCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter key:")
		key, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(key) == 0 {
			addTenantKeyCmd.Usage()
			return errHelp
		}
		return cli.addTenantKey(*addTenantKeyOrg, string(key))
	default:
		cli.printUsage()
		return errHelp
	}
}
