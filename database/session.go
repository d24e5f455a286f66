/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"sync"

	"github.com/uptrace/bun"
)

// Session is a single pooled connection checked out for one unit of work.
// It satisfies bun.IDB through the embedded bun.Conn, so repositories and
// migrations run on it directly.
type Session struct {
	bun.Conn
	once     sync.Once
	closeErr error
}

var _ bun.IDB = (*Session)(nil)

// Close returns the connection to the pool. It is safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() { s.closeErr = s.Conn.Close() })
	return s.closeErr
}

// WithSession runs fn on a fresh session and always releases it.
func WithSession(ctx context.Context, factory SessionFactory, fn func(ctx context.Context, db bun.IDB) error) (err error) {
	sess, err := factory.Session(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, sess)
}
