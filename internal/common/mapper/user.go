package mapper

import (
	"github.com/AlibekovAA/defis-users/internal/common/dto"
	userdomain "github.com/AlibekovAA/defis-users/internal/user/domain"
)

func UserToDTO(user userdomain.User) dto.User {
	return dto.User{
		ID:        int64(user.ID),
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func UsersToDTO(users []userdomain.User) dto.UserList {
	result := make([]dto.User, len(users))
	for i, u := range users {
		result[i] = UserToDTO(u)
	}
	return dto.UserList{Users: result, Count: len(result)}
}

func IDsFromInt64(ids []int64) []userdomain.ID {
	result := make([]userdomain.ID, len(ids))
	for i, id := range ids {
		result[i] = userdomain.ID(id)
	}
	return result
}
