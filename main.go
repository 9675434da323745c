package main

import (
	"github.com/tanpawarit/Chative-Loan-Origination/cmd"
	_ "github.com/tanpawarit/Chative-Loan-Origination/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
