// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package shell implements the run_shell built-in action: running the
// item's body as a shell command and capturing its stdout as the output
// item's body.
package shell

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
	kasherrors "github.com/kashrun/kash/pkg/errors"
)

const defaultTimeout = 30 * time.Second

var spec = action.Spec{
	Name:            "run_shell",
	Description:     "Runs the item's body as a shell command and captures stdout as output.",
	ExpectedArgs:    action.OneArg,
	ExpectedOutputs: action.OneArg,
	RunPerItem:      true,
	Params: param.Declarations{
		"timeout_secs": param.Param{Name: "timeout_secs", Type: param.TypeInt, Default: 30,
			Description: "command timeout in seconds"},
	},
}

// Interpreter is the shell used to run commands; overridable in tests.
var Interpreter = "sh"

// Register adds this package's action to r.
func Register(r *action.Registry) {
	r.Register(action.PerItem(spec, run))
}

func run(ctx context.Context, ec *action.ExecContext, it item.Item) (item.Item, error) {
	if _, err := exec.LookPath(Interpreter); err != nil {
		return item.Item{}, &kasherrors.SetupError{Tool: Interpreter, Reason: "interpreter not found on PATH"}
	}

	timeout := defaultTimeout
	if secs, ok := ec.Params["timeout_secs"].(int); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, Interpreter, "-c", it.Body)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return item.Item{}, &kasherrors.ApiResultError{Provider: "shell", Message: stderr.String()}
	}

	out := it
	out.Body = stdout.String()
	out.ModifiedAt = time.Now()
	return out, nil
}
