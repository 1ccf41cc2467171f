// Copyright (c) 2026 The LineMQ Authors. All rights reserved.
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

package message

import (
	"bytes"
	"encoding/json"
)

// Decode parses one line as a single JSON object into a Request. Any parse
// failure, including a line that is valid JSON but not an object, yields
// ErrInvalidJSON and no partial state.
func Decode(line []byte) (*Request, error) {
	line = bytes.TrimSpace(line)

	req := &Request{}
	if err := json.Unmarshal(line, req); err != nil {
		return nil, ErrInvalidJSON
	}

	// json.Unmarshal treats a literal null as a no-op, which would slip
	// through as an empty request.
	if bytes.Equal(line, []byte("null")) {
		return nil, ErrInvalidJSON
	}

	return req, nil
}

// Encode serializes a response or push as one JSON object followed by a
// single newline. json escapes any newlines inside string values, so the
// frame never spans multiple lines.
func Encode(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}
