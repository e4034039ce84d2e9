package rates

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"interpreting-pricing/core/money"
	apperrors "interpreting-pricing/internal/errors"
)

// Seed is the single coefficient a category's catalog is generated from
type Seed struct {
	Category        Category
	FirstBlockPrice decimal.Decimal
}

// seeds.hcl:
//
//	category "professional" {
//	  first_block_price = "28.00"
//	}
type seedFile struct {
	Categories []seedBlock `hcl:"category,block"`
}

type seedBlock struct {
	Name            string `hcl:"name,label"`
	FirstBlockPrice string `hcl:"first_block_price"`
}

// LoadSeeds reads and parses a seed file
func LoadSeeds(path string) ([]Seed, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Parsing("read seeds file", err)
	}
	return ParseSeeds(src, path)
}

// ParseSeeds decodes HCL seed definitions
func ParseSeeds(src []byte, filename string) ([]Seed, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, apperrors.Parsing("parse seeds", diagError(diags))
	}

	var sf seedFile
	if diags := gohcl.DecodeBody(file.Body, nil, &sf); diags.HasErrors() {
		return nil, apperrors.Parsing("decode seeds", diagError(diags))
	}

	seen := make(map[Category]bool, len(sf.Categories))
	seeds := make([]Seed, 0, len(sf.Categories))
	for _, b := range sf.Categories {
		category, err := ParseCategory(b.Name)
		if err != nil {
			return nil, apperrors.Parsing("seeds", err)
		}
		if seen[category] {
			return nil, apperrors.Parsing("seeds", fmt.Errorf("category %q declared twice", category))
		}
		seen[category] = true

		price, err := money.Parse(b.FirstBlockPrice)
		if err != nil {
			return nil, apperrors.Parsing("seeds", err)
		}
		seeds = append(seeds, Seed{Category: category, FirstBlockPrice: price})
	}
	return seeds, nil
}

// GenerateAll builds the catalog for every seed
func GenerateAll(seeds []Seed) ([]Row, error) {
	var rows []Row
	for _, s := range seeds {
		generated, err := Generate(s.Category, s.FirstBlockPrice)
		if err != nil {
			return nil, err
		}
		rows = append(rows, generated...)
	}
	return rows, nil
}

func diagError(diags hcl.Diagnostics) error {
	var msgs []string
	for _, d := range diags {
		if d.Severity == hcl.DiagError {
			msgs = append(msgs, d.Error())
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
