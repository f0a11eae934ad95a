// Command sessionctl lists and revokes the caller's sessions on a running
// server. It signs in over HTTP and manages sessions over gRPC.
//
//	sessionctl -e alice@example.com list
//	sessionctl -e alice@example.com revoke <family>
//	sessionctl -e alice@example.com revoke-all
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/client"
	"github.com/dmitrijs2005/blogauth/internal/common"
	"golang.org/x/term"
)

func readPassword() (string, error) {
	if p := os.Getenv("BLOGAUTH_PASSWORD"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("BLOGAUTH_PASSWORD is not set and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)

	return string(b), nil
}

func main() {
	httpAddr := flag.String("a", "http://localhost:8080", "HTTP API base URL")
	grpcAddr := flag.String("g", "localhost:50051", "gRPC address")
	email := flag.String("e", "", "account email")
	flag.Parse()

	if *email == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: sessionctl -e email list|revoke <family>|revoke-all")
		os.Exit(2)
	}

	password, err := readPassword()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	httpClient := client.NewHTTPAuthClient(*httpAddr, nil)
	tokens, err := httpClient.Login(ctx, *email, password)
	if err != nil {
		log.Fatalf("login error: %v", err)
	}

	c, err := client.NewGRPCClient(*grpcAddr, httpClient)
	if err != nil {
		log.Fatalf("grpc client error: %v", err)
	}
	defer c.Close()
	c.SetTokens(tokens)

	switch flag.Arg(0) {
	case "list":
		sessions, err := c.ListSessions(ctx)
		if err != nil {
			log.Fatalf("list error: %v", err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FAMILY\tCREATED\tEXPIRES\tIP\tUSER AGENT")
		for _, s := range sessions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Family,
				s.CreatedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339), s.IPAddress, s.UserAgent)
		}
		_ = tw.Flush()
	case "revoke":
		if flag.NArg() < 2 {
			log.Fatalf("revoke needs a family id")
		}
		if err := c.RevokeSession(ctx, flag.Arg(1)); err != nil {
			log.Fatalf("revoke error: %v", err)
		}
		fmt.Println("Session revoked")
	case "revoke-all":
		n, err := c.RevokeAll(ctx)
		if err != nil {
			log.Fatalf("revoke-all error: %v", err)
		}
		fmt.Printf("%d session(s) revoked\n", n)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
}
