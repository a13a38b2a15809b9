// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gadget

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kratos-labs/kratos/primitives"
)

func TestGuardedSerializesConcurrentBlockImports(t *testing.T) {
	require := require.New(t)
	_, validators := mkValidators(t, 1)
	g := New(validators, nil, &recordingBroadcaster{}, time.Second, 10, nil)
	guard := NewGuarded(g)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			guard.OnBlockImported(primitives.BlockNumber(n), primitives.HashBytes([]byte{byte(n)}))
		}(i)
	}
	wg.Wait()

	_, ok := guard.LastFinalized()
	require.False(ok) // no signer: never reaches supermajority alone
}
