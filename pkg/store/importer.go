package store

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/model"
)

// FleetFile is the bulk-import document. Only Containers is required;
// the other sections are applied when present.
//
//	containers:
//	  - num: 24
//	    racks:
//	      - {name: A, index: 0, width: 4, height: 6, devices: [{ip: 10.24.0.1, row: 0, column: 0}]}
//	credentials:
//	  antminer: [{username: root, password: root}]
//	pools:
//	  - {name: main, urls: [stratum+tcp://a:3333, "", ""], worker: "acct.{can}.{model}.{ip}"}
type FleetFile struct {
	Containers    []model.Container                  `yaml:"containers"`
	Credentials   map[string][]credential.Credential `yaml:"credentials,omitempty"`
	Pools         []model.PoolTemplate               `yaml:"pools,omitempty"`
	ErrorPatterns []health.Pattern                   `yaml:"error_patterns,omitempty"`
}

// ParseFleetFile decodes a fleet document, rejecting unknown fields.
func ParseFleetFile(data []byte) (*FleetFile, error) {
	var f FleetFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fleet file: %w", err)
	}
	return &f, nil
}

// LoadFleetFile reads and parses a fleet document from path.
func LoadFleetFile(path string) (*FleetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fleet file: %w", err)
	}
	return ParseFleetFile(data)
}

// ImportFleet applies a fleet document: the topology is replaced,
// credentials are replaced per listed vendor, pool templates are upserted
// and error patterns replaced when given.
func (s *Store) ImportFleet(ctx context.Context, f *FleetFile) error {
	if err := s.ImportTopology(ctx, f.Containers); err != nil {
		return err
	}
	if len(f.Credentials) > 0 {
		if err := s.ReplaceCredentials(ctx, credential.Set(f.Credentials)); err != nil {
			return err
		}
	}
	for _, p := range f.Pools {
		if err := s.SavePoolTemplate(ctx, p); err != nil {
			return err
		}
	}
	if len(f.ErrorPatterns) > 0 {
		if err := s.SaveErrorPatterns(ctx, f.ErrorPatterns); err != nil {
			return err
		}
	}
	return nil
}
