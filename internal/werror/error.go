/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package werror wraps errors with the call site that raised them so a
// fatal condition (see spec §7: errors here never unwind, they terminate
// the process) can still be triaged from a single log line.
package werror

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

type wrapped struct {
	frame string
	ctx   string
	err   error
}

func (w *wrapped) Error() string {
	return w.frame + w.ctx + "->" + w.err.Error()
}

func (w *wrapped) Unwrap() error {
	return w.err
}

// Wrap annotates err with the caller's function and line. Returns nil if
// err is nil.
func Wrap(err error) error {
	return wrapAt(err, nil, 2)
}

// WrapWithContext annotates err with the caller's function, line, and an
// arbitrary key/value context (column name, source type, row index, ...).
// Keys are rendered in sorted order so the message is deterministic.
func WrapWithContext(err error, ctx map[string]interface{}) error {
	return wrapAt(err, ctx, 2)
}

func wrapAt(err error, ctx map[string]interface{}, skip int) error {
	if err == nil {
		return nil
	}
	frame := "unknown"
	if pc, _, line, ok := runtime.Caller(skip); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			frame = fmt.Sprintf("%s:%d", fn.Name(), line)
		}
	}
	return &wrapped{frame: frame, ctx: renderCtx(ctx), err: err}
}

func renderCtx(ctx map[string]interface{}) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, ctx[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
