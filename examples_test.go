// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson_test

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xdg-go/bjson"
)

func ExampleDoc_Parse() {
	d := bjson.NewDoc(bjson.DefaultConfig())
	root, err := d.Parse([]byte(`{"a": 1, "b": [1.50, "x"]}`), 3)
	if err != nil {
		log.Fatal(err)
	}

	b := d.GetKeyValue(root, "b")
	fmt.Println(d.GetArraySize(b, false))

	s, err := d.SerializeString(root, 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(s)
	// Output:
	// 2
	// {"a":1,"b":[1.50,"x"]}
}

func ExampleDoc_Serialize() {
	d := bjson.NewDoc(bjson.DefaultConfig())
	root, err := d.ParseString(`{"a":{"b":[1,2]}}`)
	if err != nil {
		log.Fatal(err)
	}
	s, err := d.SerializeString(root, 2)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(s)
	// Output:
	// {
	// 	"a": {
	// 		"b": [
	// 			1,
	// 			2
	// 		]
	// 	}
	// }
}

func ExampleDecoder_Decode() {
	json := "{\"a\": 1}\n{\"b\": \"foo\"}\n"

	dec, err := bjson.NewDecoder(bufio.NewReader(strings.NewReader(json)))
	if err != nil {
		log.Fatal(err)
	}

	d := bjson.NewDoc(bjson.DefaultConfig())
	for {
		d.Reset()
		v, err := dec.Decode(d)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal(err)
		}
		s, _ := d.SerializeString(v, 0)
		fmt.Println(s)
	}
	// Output:
	// {"a":1}
	// {"b":"foo"}
}

func ExampleDoc_ToBSON() {
	d := bjson.NewDoc(bjson.DefaultConfig())
	root, err := d.ParseString(`{"a": 1}`)
	if err != nil {
		log.Fatal(err)
	}
	bson, err := d.ToBSON(make([]byte, 0, 256), root)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%x\n", bson)
	// Output:
	// 0c0000001061000100000000
}
