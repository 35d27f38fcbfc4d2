// cmd/kvctl is the CLI entry-point built with Cobra.
//
// Usage:
//
//	kvctl get mykey                         --server http://localhost:8080
//	kvctl set mykey 42 --type integer       --server http://localhost:8080
//	kvctl get-index myarray 3               --server http://localhost:8080
//	kvctl wait --timeout 5s                 --server http://localhost:8080
//	kvctl snapshot ./out.checkpoint         --server http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppriyankuu/knowledgebase/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "kvctl",
		Short: "CLI client for the knowledge context server",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "node server address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(getCmd(), setCmd(), deleteCmd(), incCmd(), decCmd(),
		getIndexCmd(), setIndexCmd(), scanCmd(), expandCmd(), clockCmd(),
		waitCmd(), signalCmd(), snapshotCmd(), checkpointCmd(), clusterCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Read a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			rec, err := c.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			prettyPrint(rec)
			return nil
		},
	}
}

func setCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Write a variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			ctx := context.Background()
			name, value := args[0], args[1]
			switch typ {
			case "integer":
				n, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return err
				}
				return c.PutInteger(ctx, name, n)
			case "double":
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return err
				}
				return c.PutDouble(ctx, name, f)
			case "integer_array":
				return c.PutIntegerArray(ctx, name, parseInts(value))
			case "double_array":
				return c.PutDoubleArray(ctx, name, parseDoubles(value))
			default:
				return c.PutString(ctx, name, value)
			}
		},
	}
	cmd.Flags().StringVar(&typ, "type", "string",
		"integer|double|integer_array|double_array|string")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %q\n", args[0])
			return nil
		},
	}
}

func incCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inc <name>",
		Short: "Increment a numeric variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			return c.Inc(context.Background(), args[0])
		},
	}
}

func decCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dec <name>",
		Short: "Decrement a numeric variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			return c.Dec(context.Background(), args[0])
		},
	}
}

func getIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-index <name> <i>",
		Short: "Read one element of an array variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			rec, err := c.GetIndex(context.Background(), args[0], i)
			if err != nil {
				return err
			}
			prettyPrint(rec)
			return nil
		},
	}
}

func setIndexCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "set-index <name> <i> <value>",
		Short: "Write one element of an array variable",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			v, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			return c.PutIndex(context.Background(), args[0], i, v, kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "integer", "integer|double")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <prefix>",
		Short: "List variables by name prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			records, err := c.ScanPrefix(context.Background(), args[0])
			if err != nil {
				return err
			}
			prettyPrint(records)
			return nil
		},
	}
}

func expandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand <statement>",
		Short: "Expand {name} references in a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			result, err := c.ExpandStatement(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}
}

func clockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clock",
		Short: "Print the node's Lamport clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			clock, err := c.GetClock(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(clock)
			return nil
		},
	}
}

func waitCmd() *cobra.Command {
	var waitTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until the node signals a change",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, waitTimeout+timeout)
			return c.Wait(context.Background(), waitTimeout)
		},
	}
	cmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "wait deadline")
	return cmd
}

func signalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signal",
		Short: "Wake any goroutine blocked in wait",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			return c.Signal(context.Background())
		},
	}
}

func snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <path>",
		Short: "Write a full checkpoint on the node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			return c.SaveSnapshot(context.Background(), args[0])
		},
	}
}

func checkpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint <path>",
		Short: "Write a modified-set-only checkpoint on the node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			return c.SaveCheckpoint(context.Background(), args[0])
		},
	}
}

func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster membership commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "nodes",
		Short: "List known replication peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			nodes, err := c.ClusterNodes(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(nodes)
			return nil
		},
	})
	return cmd
}

func parseInts(csv string) []int64 {
	parts := strings.Split(csv, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func parseDoubles(csv string) []float64 {
	parts := strings.Split(csv, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
