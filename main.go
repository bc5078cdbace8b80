package main

import "github.com/masaha03/chatgpt-app/cmd"

func main() {
	cmd.Execute()
}
