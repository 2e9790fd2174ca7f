// cmd/client/main.go - small CLI against the HTTP API
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	baseURL = flag.String("server", "http://localhost:8080", "server base URL")
	userID  = flag.String("user", "", "user id")
	taskID  = flag.String("task", "", "task id")
	kinds   = flag.String("kinds", "all", "comma-separated suggestion kinds, or 'all'")
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	client := &http.Client{Timeout: 30 * time.Second}

	var err error
	switch flag.Arg(0) {
	case "sync":
		err = call(client, http.MethodPost, "/api/v1/sync/pull",
			map[string]string{"user_id": *userID})
	case "tasks":
		err = call(client, http.MethodGet, "/api/v1/tasks?user_id="+*userID, nil)
	case "analyze":
		err = call(client, http.MethodPost, "/api/v1/tasks/"+*taskID+"/analyze", struct{}{})
	case "suggestions":
		err = call(client, http.MethodGet, "/api/v1/tasks/"+*taskID+"/suggestions", nil)
	case "approve":
		err = call(client, http.MethodPost, "/api/v1/tasks/"+*taskID+"/suggestions/approve", selector())
	case "reject":
		err = call(client, http.MethodPost, "/api/v1/tasks/"+*taskID+"/suggestions/reject", selector())
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func selector() interface{} {
	if *kinds == "all" {
		return map[string]interface{}{"all": true}
	}
	return map[string]interface{}{"kinds": strings.Split(*kinds, ",")}
}

func call(client *http.Client, method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, *baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: client [flags] <command>

Commands:
  sync         trigger a pull sync (-user)
  tasks        list tasks (-user)
  analyze      run analysis for a task (-task)
  suggestions  list suggestions for a task (-task)
  approve      approve suggestions (-task, -kinds)
  reject       reject suggestions (-task, -kinds)`)
	os.Exit(2)
}
