// toolctl is a terminal front-end for the tool version page: it lists a
// tool's version history, marks the current version, and performs
// confirmed rollbacks.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paxoscn/avalon-sub003/internal/console"
	"github.com/paxoscn/avalon-sub003/pkg/client/rest"
	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

var (
	baseURL  = flag.String("base-url", "http://localhost:8080", "REST API base URL")
	apiKey   = flag.String("api-key", os.Getenv("AVALON_API_KEY"), "API key")
	tenantID = flag.String("tenant", os.Getenv("AVALON_TENANT_ID"), "Tenant ID")
	toolID   = flag.String("tool", "", "Tool ID to inspect")
	timeout  = flag.Duration("timeout", 30*time.Second, "Request timeout")
)

func main() {
	flag.Parse()
	if *toolID == "" {
		log.Fatal("-tool is required")
	}

	logger := observability.NewLogger("toolctl")
	client := rest.NewRESTClient(rest.ClientConfig{
		BaseURL:  *baseURL,
		APIKey:   *apiKey,
		TenantID: *tenantID,
		Timeout:  *timeout,
		Logger:   logger,
	})

	stdin := bufio.NewReader(os.Stdin)
	confirmer := console.ConfirmerFunc(func(prompt string) bool {
		fmt.Printf("%s [y/N]: ", prompt)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})

	view := console.NewVersionConsole(rest.NewToolsClient(client), confirmer, logger, *toolID)

	ctx := context.Background()
	if err := view.Load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, view.LoadError())
		os.Exit(1)
	}
	render(view)

	for {
		fmt.Print("> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "q", "exit":
			return
		case "reload", "r":
			if err := view.Load(ctx); err != nil {
				fmt.Fprintln(os.Stderr, view.LoadError())
				continue
			}
			render(view)
		case "rollback":
			if len(fields) < 2 {
				fmt.Println("usage: rollback <version>")
				continue
			}
			version, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("usage: rollback <version>")
				continue
			}
			if err := view.Rollback(ctx, version); err != nil {
				if msg := view.RollbackError(); msg != "" {
					fmt.Fprintln(os.Stderr, msg)
				} else {
					fmt.Fprintln(os.Stderr, err)
				}
				continue
			}
			if notice := view.Notice(); notice != "" {
				fmt.Println(notice)
			}
			render(view)
		default:
			fmt.Println("commands: reload | rollback <version> | quit")
		}
	}
}

func render(view *console.VersionConsole) {
	tool := view.Tool()
	if tool == nil {
		return
	}
	fmt.Printf("\n%s (%s) current=v%d status=%s\n", tool.DisplayName, tool.Name, tool.CurrentVersion, tool.Status)

	if msg, empty := view.EmptyState(); empty {
		fmt.Println(msg)
		return
	}

	for _, row := range view.Rows() {
		tag := " "
		if row.IsCurrent {
			tag = "*"
		}
		fmt.Printf(" %s v%-4d %s %s  %s\n",
			tag, row.Version, row.CreatedAt.Format("2006-01-02 15:04"), row.Config.Method+" "+row.Config.Endpoint, row.ChangeLog)
	}
	fmt.Println()
}
