/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"context"
	"fmt"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"
)

// SelectUsers returns the users a command-line report should cover:
// everyone when email is empty, otherwise just that email's owner.
func SelectUsers(ctx context.Context, st store.LedgerStore, email string) ([]models.User, error) {
	if email != "" {
		user, err := st.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return []models.User{*user}, nil
	}
	return st.GetUsers(ctx)
}
