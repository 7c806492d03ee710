package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
)

/**
 * Convert struct to ordered map, keeping field declaration order
 * @param {interface{}} v - Struct value with json tags
 * @returns {(*orderedmap.OrderedMap, error)} Ordered map and error if any
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	o := orderedmap.New()
	if err := json.Unmarshal(data, o); err != nil {
		return nil, err
	}
	return o, nil
}

/**
 * Print records as an aligned table
 * @param {[]*orderedmap.OrderedMap} records - Rows to print, keys of the first row become the header
 * @description
 * - Prints "No records" when the list is empty
 * - Column order follows key order of the first record
 */
func PrintFormat(records []*orderedmap.OrderedMap) {
	if len(records) == 0 {
		fmt.Println("No records")
		return
	}

	keys := records[0].Keys()
	header := table.Row{}
	for _, k := range keys {
		header = append(header, k)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)

	for _, record := range records {
		row := table.Row{}
		for _, k := range keys {
			val, _ := record.Get(k)
			row = append(row, val)
		}
		t.AppendRow(row)
	}
	t.Render()
}

// PrintJson 以JSON格式输出
func PrintJson(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(data))
}
