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

package auth

func init() {
	Register("plain", NewPlainAuthenticator())
}

// plainAuthenticator compares secrets as exact strings. This matches the
// shared-secret model of the protocol: no hashing, no user identities.
type plainAuthenticator struct{}

func NewPlainAuthenticator() Authenticator {
	return plainAuthenticator{}
}

func (this plainAuthenticator) Authenticate(required, supplied string) error {
	if required == "" || required == supplied {
		return nil
	}
	return ErrAuthFailure
}
