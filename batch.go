// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"context"
	"os"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// ReadFiles reads the box trees of the files at paths concurrently,
// at most opts.Concurrency at a time. Each file gets its own Reader.
//
// The result has one entry per path, nil for the files that failed.
// Failures are returned as *FileError values combined in a *multierror.Error,
// in path order. Cancelling ctx stops files not yet started; a file already
// being read runs to completion.
func ReadFiles(ctx context.Context, opts Options, paths ...string) ([]*File, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	opts.init()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	results := make([]*File, len(paths))
	errs := make([]error, len(paths))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			f, err := readFileAt(path, opts)
			if err != nil {
				errs[i] = &FileError{Path: path, Err: err}
				return nil
			}
			results[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return results, merr.ErrorOrNil()
}

func readFileAt(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFile(f, opts)
}
