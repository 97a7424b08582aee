// Package plugin embeds the Qdrant workflow nodes in a Go host.
//
// A Plugin lists the available node types, describes their ports for given
// node data, and executes them against a Qdrant instance:
//
//	p, err := plugin.New(plugin.WithQdrant("http://localhost:6333", ""))
//	if err != nil {
//		return err
//	}
//	out, err := p.Process(ctx, plugin.ListCollections, plugin.Request{
//		Executor: plugin.ExecutorNode,
//	})
//
// Every call dials its own REST client; a Plugin holds no per-call state and
// is safe for concurrent use.
package plugin
