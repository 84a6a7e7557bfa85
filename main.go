/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/usermgmt/usersvc/cmd"

func main() {
	cmd.Execute()
}
