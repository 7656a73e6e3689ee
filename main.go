/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/asimzulfiqar/LifeLogger/cmd"

func main() {
	cmd.Execute()
}
