package dynamo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/rickgao/coingecko-data/internal/model"
	"github.com/rickgao/coingecko-data/internal/store"
)

// marshalItem converts an item to DynamoDB attributes. Decimals are written
// as N so no precision is lost.
func marshalItem(it store.Item) (map[string]types.AttributeValue, error) {
	av := make(map[string]types.AttributeValue, len(it.Attributes)+4)
	for name, v := range it.Attributes {
		a, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		av[name] = a
	}

	av[store.AttrPK] = &types.AttributeValueMemberS{Value: it.PK}
	av[store.AttrSK] = &types.AttributeValueMemberS{Value: it.SK}
	av[store.AttrEntityType] = &types.AttributeValueMemberS{Value: string(it.EntityType)}
	av[store.AttrExpiry] = &types.AttributeValueMemberN{Value: strconv.FormatInt(it.Expiry, 10)}
	return av, nil
}

func toAttributeValue(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(x)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(x, 10)}, nil
	case decimal.Decimal:
		return &types.AttributeValueMemberN{Value: x.String()}, nil
	case time.Time:
		return &types.AttributeValueMemberS{Value: x.UTC().Format(time.RFC3339Nano)}, nil
	case []string:
		// A list, not a string set: sets cannot be empty.
		l := make([]types.AttributeValue, len(x))
		for i, s := range x {
			l[i] = &types.AttributeValueMemberS{Value: s}
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	default:
		return attributevalue.Marshal(v)
	}
}

// unmarshalItem is the inverse of marshalItem. Numbers come back as
// decimal.Decimal and string lists as []string.
func unmarshalItem(av map[string]types.AttributeValue) (store.Item, error) {
	it := store.Item{Attributes: make(map[string]any, len(av))}
	for name, a := range av {
		switch name {
		case store.AttrPK:
			it.PK = stringOf(a)
		case store.AttrSK:
			it.SK = stringOf(a)
		case store.AttrEntityType:
			it.EntityType = model.EntityType(stringOf(a))
		case store.AttrExpiry:
			if n, ok := a.(*types.AttributeValueMemberN); ok {
				exp, err := strconv.ParseInt(n.Value, 10, 64)
				if err != nil {
					return store.Item{}, fmt.Errorf("expiry: %w", err)
				}
				it.Expiry = exp
			}
		default:
			v, err := fromAttributeValue(a)
			if err != nil {
				return store.Item{}, fmt.Errorf("attribute %q: %w", name, err)
			}
			it.Attributes[name] = v
		}
	}
	return it, nil
}

func fromAttributeValue(a types.AttributeValue) (any, error) {
	switch x := a.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return x.Value, nil
	case *types.AttributeValueMemberBOOL:
		return x.Value, nil
	case *types.AttributeValueMemberN:
		return decimal.NewFromString(x.Value)
	case *types.AttributeValueMemberL:
		strs := make([]string, 0, len(x.Value))
		for _, e := range x.Value {
			s, ok := e.(*types.AttributeValueMemberS)
			if !ok {
				var out []any
				err := attributevalue.Unmarshal(a, &out)
				return out, err
			}
			strs = append(strs, s.Value)
		}
		return strs, nil
	default:
		var out any
		err := attributevalue.Unmarshal(a, &out)
		return out, err
	}
}

func stringOf(a types.AttributeValue) string {
	if s, ok := a.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
