package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	approvedClaimsFile = "ApprovedClaims.csv"
	fdaPoliciesFile    = "FDAPolicies.csv"
	ftcPoliciesFile    = "FTCPolicies.csv"
)

// PolicyStore loads and caches per-product policy tables. Tables are
// read-only after load, so the cache may be shared across sessions.
type PolicyStore struct {
	docsDir string

	mu    sync.RWMutex
	cache map[string]*PolicySet
}

func NewPolicyStore(docsDir string) *PolicyStore {
	return &PolicyStore{
		docsDir: docsDir,
		cache:   make(map[string]*PolicySet),
	}
}

func (s *PolicyStore) productDir(product string) string {
	return filepath.Join(s.docsDir, product+"_compliance")
}

// Get returns the policy tables for a product, loading them on first
// use.
func (s *PolicyStore) Get(product string) (*PolicySet, error) {
	s.mu.RLock()
	set, ok := s.cache[product]
	s.mu.RUnlock()
	if ok {
		return set, nil
	}
	return s.Reload(product)
}

// Reload re-reads a product's policy files and replaces the cached
// set. Sessions holding the old set keep a consistent snapshot.
func (s *PolicyStore) Reload(product string) (*PolicySet, error) {
	set, err := s.load(product)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[product] = set
	s.mu.Unlock()
	return set, nil
}

// CachedProducts lists products loaded so far, sorted for stable
// logging.
func (s *PolicyStore) CachedProducts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]string, 0, len(s.cache))
	for product := range s.cache {
		products = append(products, product)
	}
	sort.Strings(products)
	return products
}

func (s *PolicyStore) load(product string) (*PolicySet, error) {
	dir := s.productDir(product)
	if _, err := os.Stat(dir); err != nil {
		return nil, &ValidationError{Field: "product", Detail: fmt.Sprintf("policy folder not found: %s", dir)}
	}

	approved, err := loadPolicyCSV(filepath.Join(dir, approvedClaimsFile), CategoryApproved)
	if err != nil {
		return nil, err
	}
	fda, err := loadPolicyCSV(filepath.Join(dir, fdaPoliciesFile), CategoryFDA)
	if err != nil {
		return nil, err
	}
	ftc, err := loadPolicyCSV(filepath.Join(dir, ftcPoliciesFile), CategoryFTC)
	if err != nil {
		return nil, err
	}

	set := &PolicySet{Product: product, Approved: approved, FDA: fda, FTC: ftc}
	log.Printf("policies loaded product=%s approved=%d fda=%d ftc=%d", product, len(approved), len(fda), len(ftc))
	return set, nil
}

// loadPolicyCSV reads one policy table. The first row is a header;
// each data row needs an identifier in the first column and policy
// text in the second. Malformed rows are skipped, not fatal.
func loadPolicyCSV(path string, category Category) ([]PolicyItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var items []PolicyItem
	row := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			log.Printf("policy load skipped row file=%s row=%d err=%v", filepath.Base(path), row, err)
			continue
		}
		if row == 1 {
			continue // header
		}
		if len(record) < 2 {
			log.Printf("policy load skipped row file=%s row=%d err=missing columns", filepath.Base(path), row)
			continue
		}
		id := strings.TrimSpace(record[0])
		text := strings.TrimSpace(record[1])
		if id == "" || text == "" {
			log.Printf("policy load skipped row file=%s row=%d err=blank id or text", filepath.Base(path), row)
			continue
		}
		items = append(items, PolicyItem{
			ID:   fmt.Sprintf("%s:%s", category, id),
			Text: text,
		})
	}
	return items, nil
}
