/*
Copyright 2024 Saifu Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ext

import (
	"strconv"
	"sync/atomic"
)

// SequentialAccountNumberGenerator issues fixed-width decimal account
// numbers from a strided counter. Starting at 2^60 keeps every number the
// same length, so lexicographic order matches issuance order.
type SequentialAccountNumberGenerator struct {
	next atomic.Int64
}

func NewSequentialAccountNumberGenerator() *SequentialAccountNumberGenerator {
	g := &SequentialAccountNumberGenerator{}
	g.next.Store(1 << 60)
	return g
}

func (g *SequentialAccountNumberGenerator) NextNumber() string {
	return strconv.FormatInt(g.next.Add(13)-13, 10)
}
