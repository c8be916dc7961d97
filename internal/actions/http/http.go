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

// Package http implements the fetch_url built-in action: downloading a
// URL's content into a resource item, using the shared retry-aware HTTP
// client and the store's URL canonicalization.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/format"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/precondition/builtin"
	"github.com/kashrun/kash/internal/store/urlcanon"
	kasherrors "github.com/kashrun/kash/pkg/errors"
	"github.com/kashrun/kash/pkg/httpclient"
)

var spec = action.Spec{
	Name:            "fetch_url",
	Description:     "Fetches a URL's content and saves it as a resource item.",
	Precondition:    builtin.IsURLItem,
	ExpectedArgs:    action.OneArg,
	ExpectedOutputs: action.OneArg,
	RunPerItem:      true,
	Cacheable:       true,
	MCPTool:         true,
}

// Register adds this package's actions to r.
func Register(r *action.Registry) {
	r.Register(action.PerItem(spec, fetchURL))
}

func fetchURL(ctx context.Context, ec *action.ExecContext, it item.Item) (item.Item, error) {
	if it.URL == "" {
		return item.Item{}, &kasherrors.InvalidInputError{Field: "url", Message: "item has no URL to fetch"}
	}

	client, err := httpclient.New(httpclient.DefaultConfig())
	if err != nil {
		return item.Item{}, fmt.Errorf("building http client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, it.URL, nil)
	if err != nil {
		return item.Item{}, &kasherrors.InvalidInputError{Field: "url", Message: err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return item.Item{}, &kasherrors.ApiResultError{Provider: "http", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return item.Item{}, &kasherrors.ApiResultError{
			Provider: "http",
			Message:  fmt.Sprintf("fetching %s: status %d", it.URL, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return item.Item{}, &kasherrors.ApiResultError{Provider: "http", Message: err.Error()}
	}

	canon, err := urlcanon.Canonicalize(it.URL)
	if err != nil {
		canon = it.URL
	}

	out := it
	out.URL = canon
	out.Body = string(body)
	out.Format = string(format.DetectFormat(canon, body))
	out.ModifiedAt = time.Now()
	return out, nil
}
