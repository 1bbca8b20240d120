package testng

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/YuminosukeSato/scigo-testng/frame"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
)

// characteristicsHeader is the first cell of an optional header line.
const characteristicsHeader = "dataset_id"

// Dataset is one entry of the dataset characteristics file. Its frame is
// parsed on first use and owned by the dataset until Close.
type Dataset struct {
	ID             string
	Directory      string // size tier, e.g. smalldata
	FileName       string
	ResponseColumn string
	ColumnNames    []string
	ColumnTypes    []string

	root  string
	store *frame.Store

	mu sync.Mutex
	fr *frame.Frame
}

// Path returns <root>/<directory>/<file>.
func (d *Dataset) Path() string {
	return filepath.Join(d.root, d.Directory, d.FileName)
}

// Available reports whether the dataset can be trained on: the file exists,
// names and types are declared pairwise and include the response column.
func (d *Dataset) Available() bool {
	if len(d.ColumnNames) == 0 || len(d.ColumnNames) != len(d.ColumnTypes) {
		return false
	}
	if !contains(d.ColumnNames, d.ResponseColumn) {
		return false
	}
	info, err := os.Stat(d.Path())
	return err == nil && !info.IsDir()
}

// Frame returns the dataset frame, parsing and registering it in the store
// on first use.
func (d *Dataset) Frame() (*frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fr != nil {
		return d.fr, nil
	}

	types := make(map[string]frame.ColumnType, len(d.ColumnNames))
	for i, name := range d.ColumnNames {
		if i >= len(d.ColumnTypes) {
			break
		}
		t, err := frame.ParseColumnType(d.ColumnTypes[i])
		if err != nil {
			return nil, errors.Wrapf(err, "dataset %s column %s", d.ID, name)
		}
		types[name] = t
	}

	f, err := os.Open(d.Path())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %s", d.ID)
	}
	defer f.Close()

	fr, err := frame.ParseCSV(f, frame.NewKey("dataset_"+d.ID), types)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse dataset %s", d.ID)
	}
	for _, name := range d.ColumnNames {
		if _, ok := fr.Column(name); !ok {
			return nil, errors.Newf("dataset %s: declared column %s not in %s", d.ID, name, d.Path())
		}
	}

	d.store.Put(fr)
	d.fr = fr
	return fr, nil
}

// Loaded reports whether the frame is parsed and registered in the store.
func (d *Dataset) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fr != nil
}

// Close removes the frame from the store. The next Frame call parses the
// file again.
func (d *Dataset) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fr != nil {
		d.store.Remove(d.fr.Key())
		d.fr = nil
	}
}

// Registry maps dataset ids to datasets. It replaces a process-wide map: the
// top-level run owns it and passes it to the loader and resolver.
type Registry struct {
	root     string
	store    *frame.Store
	datasets map[string]*Dataset
	order    []string
}

// NewRegistry creates an empty registry whose dataset files live under root.
func NewRegistry(root string, store *frame.Store) *Registry {
	return &Registry{root: root, store: store, datasets: make(map[string]*Dataset)}
}

// Add registers ds, replacing a dataset with the same id.
func (r *Registry) Add(ds *Dataset) {
	ds.root = r.root
	ds.store = r.store
	if _, dup := r.datasets[ds.ID]; !dup {
		r.order = append(r.order, ds.ID)
	}
	r.datasets[ds.ID] = ds
}

// Get returns the dataset with the given id.
func (r *Registry) Get(id string) (*Dataset, bool) {
	ds, ok := r.datasets[id]
	return ds, ok
}

// IDs returns the dataset ids in file order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Store returns the frame store datasets register their frames in.
func (r *Registry) Store() *frame.Store { return r.store }

// Tiers returns the distinct size tiers in sorted order.
func (r *Registry) Tiers() []string {
	seen := make(map[string]struct{})
	for _, ds := range r.datasets {
		seen[ds.Directory] = struct{}{}
	}
	tiers := make([]string, 0, len(seen))
	for t := range seen {
		tiers = append(tiers, t)
	}
	sort.Strings(tiers)
	return tiers
}

// RemoveSize closes and drops every dataset of the given tier. An empty
// directory is a no-op.
func (r *Registry) RemoveSize(directory string) {
	if directory == "" {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		ds := r.datasets[id]
		if ds.Directory == directory {
			ds.Close()
			delete(r.datasets, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// CloseAll closes the frame of every dataset.
func (r *Registry) CloseAll() {
	for _, ds := range r.datasets {
		ds.Close()
	}
}

// ReadDatasetCharacteristics reads the characteristics file format:
//
//	id,directory,filename,response,name1;name2;...,type1;type2;...
//
// Blank lines and a leading dataset_id header are skipped. Lines with fewer
// than six cells are skipped with a warning.
func ReadDatasetCharacteristics(r io.Reader, root string, store *frame.Store) (*Registry, error) {
	logger := log.GetLoggerWithName("testng.registry")
	reg := NewRegistry(root, store)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if len(reg.order) == 0 && strings.EqualFold(cells[0], characteristicsHeader) {
			continue
		}
		if len(cells) < 6 {
			logger.Warn("skipping malformed dataset characteristics line",
				"line", lineNo, "cells", len(cells))
			continue
		}
		reg.Add(&Dataset{
			ID:             cells[0],
			Directory:      cells[1],
			FileName:       cells[2],
			ResponseColumn: cells[3],
			ColumnNames:    splitList(cells[4]),
			ColumnTypes:    splitList(cells[5]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read dataset characteristics")
	}
	logger.Info("loaded dataset characteristics", "datasets", len(reg.order))
	return reg, nil
}

// LoadRegistry reads the characteristics file at path.
func LoadRegistry(path, root string, store *frame.Store) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset characteristics %s", path)
	}
	defer f.Close()
	reg, err := ReadDatasetCharacteristics(f, root, store)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset characteristics %s", path)
	}
	return reg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
