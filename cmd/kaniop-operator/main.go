package main

import (
	"context"

	"github.com/kaniop/kaniop/cmd/kaniop-operator/cmd"
)

func main() {
	ctx := context.Background()
	cmd.Execute(ctx)
}
