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

package ledger

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reference id prefixes by origin. Gateway payments and internal transfers
// are distinguishable at a glance in statements and support tooling.
const (
	RefPrefixPayment     = "PG"
	RefPrefixTransaction = "TXN"
)

// NewReference builds an opaque, unique, human-quotable reference id:
// prefix, then the millisecond timestamp in base36, then 64 bits from
// crypto/rand in base36, all upper-cased. The timestamp keeps ids roughly
// sortable; the random suffix makes same-millisecond collisions a
// non-event even across processes.
func NewReference(prefix string) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	suffix := binary.BigEndian.Uint64(buf[:])

	millis := time.Now().UnixMilli()
	return prefix +
		strings.ToUpper(strconv.FormatInt(millis, 36)) +
		strings.ToUpper(strconv.FormatUint(suffix, 36)), nil
}

// NewAccountNumber generates an account number in the bank's NXB format:
// the prefix, the millisecond timestamp, and four random digits. Uniqueness
// is ultimately enforced by the storage layer's unique index.
func NewAccountNumber() (string, error) {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	n := binary.BigEndian.Uint16(buf[:]) % 10000
	return fmt.Sprintf("NXB%d%04d", time.Now().UnixMilli(), n), nil
}
