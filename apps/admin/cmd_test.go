package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/tenant"
	dummydb "github.com/peakform/funnel/storage/database/dummy"
	testutil "github.com/peakform/funnel/tests"
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	funnel.RegisterValidators(validate, translator)

	return &commandLine{
		conf:       core.Conf,
		db:         new(sql.DB), // never dialed; migrate is mocked
		funnelSvc:  funnel.NewService(dummydb.NewFunnelRepository(db)),
		tenantSvc:  tenant.NewService(dummydb.NewTenantRepository(db)),
		validate:   validate,
		translator: translator,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_seedFunnel(t *testing.T) {
	cli := setup(t)

	writeDef := func(t *testing.T, nf funnel.NewFunnel) string {
		raw, err := json.Marshal(nf)
		if err != nil {
			t.Fatalf("marshaling definition: %v", err)
		}
		path := filepath.Join(t.TempDir(), "funnel.json")
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			t.Fatalf("writing definition: %v", err)
		}
		return path
	}

	goodPath := writeDef(t, funnel.NewFunnel{
		OrgID: "org1",
		Name:  "Seeded Funnel",
		Steps: testutil.CoachingSteps(),
	})

	badSteps := testutil.CoachingSteps()
	badSteps[1].ID = badSteps[0].ID
	badPath := writeDef(t, funnel.NewFunnel{OrgID: "org1", Name: "Bad", Steps: badSteps})

	tests := []cliTest{
		{name: "no file flag", args: []string{"seedfunnel"}, wantErr: errHelp},
		{name: "missing file", args: []string{"seedfunnel", "-file", "nope.json"}, wantErrStr: "open nope.json: no such file or directory"},
		{name: "invalid step graph", args: []string{"seedfunnel", "-file", badPath}, wantErr: errStepGraphSentinel},
		{name: "seeded", args: []string{"seedfunnel", "-file", goodPath}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Errorf("cli.run() error = nil, want %v%s", tt.wantErr, tt.wantErrStr)
				}
				return
			}
			if tt.wantErr != nil {
				var vErr *core.ValidationError
				if tt.wantErr == errStepGraphSentinel {
					if !errors.As(err, &vErr) {
						t.Errorf("cli.run() error = %v, want validation error", err)
					}
				} else if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if tt.wantErrStr != "" && err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		})
	}

	// the seeded funnel is queryable
	funnels, err := cli.funnelSvc.QueryAll(context.Background())
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	if len(funnels) != 1 || funnels[0].Name != "Seeded Funnel" {
		t.Errorf("funnels = %+v, want the one seeded funnel", funnels)
	}
}

var errStepGraphSentinel = errors.New("step graph")

func Test_commandLine_addTenantKey(t *testing.T) {
	cli := setup(t)

	type extra struct {
		key string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no org flag", args: []string{"addtenantkey"}, wantErr: errHelp},
		{name: "org but no key", args: []string{"addtenantkey", "-org", "org1"}, wantErr: errHelp},
		{name: "issued", args: []string{"addtenantkey", "-org", "org1"}, extra: extra{key: "sk_test_123"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.key), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	// the issued key verifies
	if err := cli.tenantSvc.Verify(context.Background(), "org1", "sk_test_123"); err != nil {
		t.Errorf("Verify() failed: %v", err)
	}
	if err := cli.tenantSvc.Verify(context.Background(), "org1", "wrong"); err != tenant.ErrInvalidKey {
		t.Errorf("Verify() error = %v, want ErrInvalidKey", err)
	}
}
