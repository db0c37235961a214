// Command token issues an operator access token for the admin console.
//
//	token -s <secret> -o <operator> -t <validity hours>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/server/auth"
)

func main() {

	fs := flag.NewFlagSet("token", flag.ExitOnError)
	secret := fs.String("s", "secretKey", "secret key shared with the store server")
	operator := fs.String("o", "admin", "operator name")
	validity := fs.Int("t", 24, "token validity (in hours)")
	_ = fs.Parse(os.Args[1:])

	token, err := auth.GenerateToken(*operator, []byte(*secret), time.Duration(*validity)*time.Hour)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println(token)

}
