package main

import "github.com/ZanzyTHEbar/chatllms-go/cmd/chatllms/cmd"

func main() {
	cmd.Execute()
}
