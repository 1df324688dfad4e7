// Command cli creates and reads secrets against a running hushbox
// server. With -e2e the content is additionally encrypted locally and
// the decryption key travels only in the share link's URL fragment.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"hushbox/internal/domain"
	"hushbox/pkg/e2e"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("HUSHBOX_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	switch os.Args[1] {
	case "create":
		createCmd(baseURL, os.Args[2:])
	case "view":
		viewCmd(baseURL, os.Args[2:])
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s <command> [flags] [arguments]\n", os.Args[0])
	fmt.Println("Share self-destructing secrets.")
	fmt.Println("\nCommands:")
	fmt.Println("  create <content>   Create a secret and print its share link")
	fmt.Println("    -password string   require this password to view")
	fmt.Println("    -expires duration  expire after this long (e.g. 24h)")
	fmt.Println("    -one-time          destroy after the first view")
	fmt.Println("    -owner string      attach to an owner id")
	fmt.Println("    -e2e               encrypt locally; key goes in the URL fragment")
	fmt.Println("  view <share-url>   Retrieve a secret")
	fmt.Println("    -password string   password, if the secret requires one")
	fmt.Println("  help               Show this help message")
	fmt.Println("\nEnvironment variables:")
	fmt.Println("  HUSHBOX_URL        Base URL of the server (default: " + defaultBaseURL + ")")
}

func createCmd(baseURL string, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	password := fs.String("password", "", "require this password to view")
	expires := fs.Duration("expires", 0, "expire after this long")
	oneTime := fs.Bool("one-time", false, "destroy after the first view")
	owner := fs.String("owner", "", "attach to an owner id")
	useE2E := fs.Bool("e2e", false, "encrypt locally before upload")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: create [flags] <content>")
		os.Exit(1)
	}
	content := fs.Arg(0)

	var fragmentKey string
	if *useE2E {
		key, err := e2e.GenerateKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		content, err = e2e.Encrypt(content, key)
		if err != nil {
			log.Fatalf("encrypt: %v", err)
		}
		fragmentKey = key
	}

	req := domain.CreateReq{
		Content:       content,
		Password:      *password,
		OneTimeAccess: *oneTime,
		Owner:         *owner,
	}
	if *expires > 0 {
		t := time.Now().Add(*expires).UTC()
		req.ExpiresAt = &t
	}

	var res domain.CreateRes
	if err := postJSON(baseURL+"/api/secrets", req, http.StatusCreated, &res); err != nil {
		log.Fatalf("create secret: %v", err)
	}

	fmt.Println("Your secret is ready to share:")
	fmt.Printf("URL: %s\n", e2e.BuildShareURL(baseURL, res.ID, fragmentKey))
	if req.ExpiresAt != nil {
		fmt.Printf("Expires: %s\n", req.ExpiresAt.Format(time.RFC1123))
	}
	if *oneTime {
		fmt.Println("The secret will self-destruct after the first view.")
	}
}

func viewCmd(baseURL string, args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	password := fs.String("password", "", "password, if the secret requires one")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: view [flags] <share-url>")
		os.Exit(1)
	}

	id, fragmentKey, err := e2e.ParseShareURL(fs.Arg(0))
	if err != nil {
		log.Fatalf("share url: %v", err)
	}

	var res domain.ViewRes
	err = postJSON(baseURL+"/api/secrets/"+id+"/view",
		domain.ViewReq{Password: *password}, http.StatusOK, &res)
	if err != nil {
		log.Fatalf("view secret: %v", err)
	}

	content := res.Content
	if fragmentKey != "" {
		content, err = e2e.Decrypt(content, fragmentKey)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	fmt.Println(content)
	if res.OneTimeAccess {
		fmt.Fprintln(os.Stderr, "This secret has now been destroyed.")
	}
}

func postJSON(url string, body any, wantStatus int, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
