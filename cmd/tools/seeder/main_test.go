package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/store/memory"
)

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()

	require.NoError(t, seed(ctx, mem, zerolog.Nop()))
	require.NoError(t, seed(ctx, mem, zerolog.Nop()))

	got, err := mem.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(items))

	custs, err := mem.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, custs, len(customers))
}
