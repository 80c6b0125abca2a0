package main

import "github.com/Ananth-NQI/appointlab-backend/cmd"

func main() {
	cmd.Execute()
}
